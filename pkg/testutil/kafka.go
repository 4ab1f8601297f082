package testutil

import (
	"context"
	"net"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.6.1"

// Kafka is a single-node broker for integration tests.
type Kafka struct {
	Brokers []string
}

// StartKafka runs a broker container and creates the given single-partition topics.
// Teardown is registered on t.
func StartKafka(ctx context.Context, t *testing.T, topics ...string) *Kafka {
	t.Helper()

	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("taxrisk-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { terminate(t, container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	k := &Kafka{Brokers: brokers}
	if len(topics) > 0 {
		k.createTopics(ctx, t, topics)
	}
	return k
}

// Topic creation has to go through the controller broker.
func (k *Kafka) createTopics(ctx context.Context, t *testing.T, topics []string) {
	t.Helper()

	conn, err := kafkago.DialContext(ctx, "tcp", k.Brokers[0])
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	require.NoError(t, ctrl.CreateTopics(configs...), "create topics")
}
