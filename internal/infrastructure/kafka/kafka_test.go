package kafka_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/application/dto"
	"github.com/bibbank/taxrisk/internal/domain/event"
	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/infrastructure/kafka"
	"github.com/bibbank/taxrisk/pkg/events"
	pkgkafka "github.com/bibbank/taxrisk/pkg/kafka"
)

// --- Mocks ---

type mockProducer struct {
	publishFn func(ctx context.Context, topic string, messages ...pkgkafka.Message) error
	topic     string
	messages  []pkgkafka.Message
}

func (m *mockProducer) Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error {
	m.topic = topic
	m.messages = append(m.messages, messages...)
	if m.publishFn != nil {
		return m.publishFn(ctx, topic, messages...)
	}
	return nil
}

type mockScorer struct {
	executeFn func(ctx context.Context, req dto.ScoreFilingRequest) (dto.VerdictResponse, error)
	calls     []dto.ScoreFilingRequest
}

func (m *mockScorer) Execute(ctx context.Context, req dto.ScoreFilingRequest) (dto.VerdictResponse, error) {
	m.calls = append(m.calls, req)
	if m.executeFn != nil {
		return m.executeFn(ctx, req)
	}
	return dto.VerdictResponse{ID: uuid.New(), RiskTier: "LOW"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// --- Publisher ---

func TestPublisher_Publish(t *testing.T) {
	tenant := uuid.New().String()
	issued := event.NewVerdictIssued("verdict-1", tenant, "VND-001", "STREET_VENDOR_GOODS", 0.9, "CRITICAL",
		[]string{"openai"}, []string{"gemini"}, []string{"black_money"}, time.Now().UTC())
	critical := event.NewCriticalRiskDetected("verdict-1", tenant, "VND-001", 0.9, "gap", time.Now().UTC())

	t.Run("batches events keyed by verdict", func(t *testing.T) {
		producer := &mockProducer{}
		p := kafka.NewPublisher(producer, "taxrisk.events", discardLogger())

		require.NoError(t, p.Publish(context.Background(), issued, critical))

		assert.Equal(t, "taxrisk.events", producer.topic)
		require.Len(t, producer.messages, 2)
		for _, m := range producer.messages {
			assert.Equal(t, "verdict-1", string(m.Key))
			assert.Equal(t, tenant, m.Headers["tenant_id"])
		}
		assert.Equal(t, event.EventTypeVerdictIssued, producer.messages[0].Headers["event_type"])
		assert.Equal(t, event.EventTypeCriticalRiskDetected, producer.messages[1].Headers["event_type"])
		assert.Equal(t, issued.EventID(), producer.messages[0].Headers[kafka.EventIDHeader])
		assert.Equal(t, "application/json", producer.messages[0].Headers[kafka.ContentTypeHeader])
		assert.NotEmpty(t, producer.messages[0].Headers[kafka.OccurredAtHeader])

		var body map[string]any
		require.NoError(t, json.Unmarshal(producer.messages[0].Value, &body))
		assert.Equal(t, "CRITICAL", body["risk_tier"])
		assert.Equal(t, event.EventTypeVerdictIssued, body["event_type"])
	})

	t.Run("no events is a no-op", func(t *testing.T) {
		producer := &mockProducer{}
		require.NoError(t, kafka.NewPublisher(producer, "taxrisk.events", discardLogger()).Publish(context.Background()))
		assert.Empty(t, producer.topic)
	})

	t.Run("producer error is wrapped", func(t *testing.T) {
		producer := &mockProducer{publishFn: func(context.Context, string, ...pkgkafka.Message) error {
			return errors.New("leader not available")
		}}
		err := kafka.NewPublisher(producer, "taxrisk.events", discardLogger()).
			Publish(context.Background(), []events.DomainEvent{issued}...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish events to topic taxrisk.events")
	})
}

// --- Filing handler ---

func filingMessage(t *testing.T, body any, headers map[string]string) pkgkafka.Message {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return pkgkafka.Message{Value: raw, Headers: headers}
}

func TestFilingHandler(t *testing.T) {
	tenant := uuid.New()
	filing := map[string]any{
		"business_id":       "VND-001",
		"business_category": "STREET_VENDOR_GOODS",
		"num_outlets":       2,
		"daily_revenue_min": 500,
		"daily_revenue_max": 15000,
	}

	t.Run("scores a filing with tenant in body", func(t *testing.T) {
		scorer := &mockScorer{}
		h := kafka.NewFilingHandler(scorer, discardLogger())

		err := h(context.Background(), filingMessage(t, map[string]any{"tenant_id": tenant, "filing": filing}, nil))
		require.NoError(t, err)
		require.Len(t, scorer.calls, 1)
		assert.Equal(t, tenant, scorer.calls[0].TenantID)
		assert.Equal(t, "VND-001", scorer.calls[0].Filing.BusinessID)
		require.NotNil(t, scorer.calls[0].Filing.DailyRevenueMax)
		assert.Equal(t, 15000.0, *scorer.calls[0].Filing.DailyRevenueMax)
	})

	t.Run("tenant from header", func(t *testing.T) {
		scorer := &mockScorer{}
		h := kafka.NewFilingHandler(scorer, discardLogger())

		err := h(context.Background(), filingMessage(t, map[string]any{"filing": filing},
			map[string]string{kafka.TenantHeader: tenant.String()}))
		require.NoError(t, err)
		assert.Equal(t, tenant, scorer.calls[0].TenantID)
	})

	tests := []struct {
		name          string
		msg           pkgkafka.Message
		scoreErr      error
		wantPermanent bool
	}{
		{
			name:          "garbage payload",
			msg:           pkgkafka.Message{Value: []byte("not json")},
			wantPermanent: true,
		},
		{
			name:          "missing tenant",
			msg:           filingMessage(t, map[string]any{"filing": filing}, nil),
			wantPermanent: true,
		},
		{
			name:          "bad tenant header",
			msg:           filingMessage(t, map[string]any{"filing": filing}, map[string]string{kafka.TenantHeader: "nope"}),
			wantPermanent: true,
		},
		{
			name:          "invalid filing",
			msg:           filingMessage(t, map[string]any{"tenant_id": tenant, "filing": filing}, nil),
			scoreErr:      fmt.Errorf("failed to normalize filing: %w", &model.ValidationError{Fields: map[string]string{"category": "unknown"}}),
			wantPermanent: true,
		},
		{
			name:     "no scorers is retryable",
			msg:      filingMessage(t, map[string]any{"tenant_id": tenant, "filing": filing}, nil),
			scoreErr: fmt.Errorf("failed to score filing: %w", service.ErrNoScorersAvailable),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &mockScorer{executeFn: func(context.Context, dto.ScoreFilingRequest) (dto.VerdictResponse, error) {
				return dto.VerdictResponse{}, tt.scoreErr
			}}
			err := kafka.NewFilingHandler(scorer, discardLogger())(context.Background(), tt.msg)
			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, pkgkafka.IsPermanent(err))
		})
	}
}
