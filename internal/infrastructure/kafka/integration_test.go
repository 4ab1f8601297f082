package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/application/dto"
	"github.com/bibbank/taxrisk/internal/infrastructure/kafka"
	pkgkafka "github.com/bibbank/taxrisk/pkg/kafka"
	"github.com/bibbank/taxrisk/pkg/testutil"
)

func TestFilingConsumer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	const topic = "taxrisk.filings.submitted"
	kc := testutil.StartKafka(ctx, t, topic)

	cfg := pkgkafka.Config{Brokers: kc.Brokers, ConsumerGroup: "taxrisk-it", HandlerRetries: 1, RetryBackoff: 10 * time.Millisecond}

	producer, err := pkgkafka.NewProducer(cfg)
	require.NoError(t, err)
	defer producer.Close()

	filing, err := json.Marshal(map[string]any{
		"filing": map[string]any{
			"business_id":       testutil.TestVendorBusinessID,
			"business_category": "STREET_VENDOR_GOODS",
			"num_outlets":       2,
			"daily_revenue_min": 500,
			"daily_revenue_max": 15000,
		},
	})
	require.NoError(t, err)
	require.NoError(t, producer.Publish(ctx, topic, pkgkafka.Message{
		Key:     []byte(testutil.TestVendorBusinessID),
		Value:   filing,
		Headers: map[string]string{kafka.TenantHeader: testutil.TestTenantID.String()},
	}))

	received := make(chan dto.ScoreFilingRequest, 1)
	scorer := &mockScorer{executeFn: func(_ context.Context, req dto.ScoreFilingRequest) (dto.VerdictResponse, error) {
		received <- req
		return dto.VerdictResponse{ID: uuid.New(), BusinessID: req.Filing.BusinessID, RiskTier: "CRITICAL"}, nil
	}}

	consumer, err := pkgkafka.NewConsumer(cfg, topic, kafka.NewFilingHandler(scorer, discardLogger()), discardLogger())
	require.NoError(t, err)
	defer consumer.Close()

	consumeCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Start(consumeCtx) }()

	select {
	case req := <-received:
		assert.Equal(t, testutil.TestTenantID, req.TenantID)
		assert.Equal(t, testutil.TestVendorBusinessID, req.Filing.BusinessID)
		require.NotNil(t, req.Filing.DailyRevenueMax)
		assert.Equal(t, 15000.0, *req.Filing.DailyRevenueMax)
	case <-ctx.Done():
		t.Fatal("filing was not consumed")
	}

	stop()
	assert.NoError(t, <-done)
}
