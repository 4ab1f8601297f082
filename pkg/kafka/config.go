package kafka

import (
	"crypto/tls"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// Config holds Kafka connection parameters.
type Config struct {
	ConsumerGroup string

	// SASLMechanism is "PLAIN", "SCRAM-SHA-256" or "SCRAM-SHA-512".
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string

	Brokers []string

	// HandlerRetries is how many times a failing message is redelivered to the handler
	// before it is committed and skipped.
	HandlerRetries int
	RetryBackoff   time.Duration

	TLS         bool
	SASLEnabled bool
}

func (c Config) tlsConfig() *tls.Config {
	if !c.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

func (c Config) saslMechanism() (sasl.Mechanism, error) {
	if !c.SASLEnabled {
		return nil, nil
	}
	switch c.SASLMechanism {
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.SASLUsername, c.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.SASLUsername, c.SASLPassword)
	case "PLAIN", "":
		return plain.Mechanism{Username: c.SASLUsername, Password: c.SASLPassword}, nil
	default:
		return nil, fmt.Errorf("kafka: unsupported sasl mechanism %q", c.SASLMechanism)
	}
}

// dialer is used by readers; nil when neither TLS nor SASL is configured.
func (c Config) dialer() (*kafkago.Dialer, error) {
	if !c.TLS && !c.SASLEnabled {
		return nil, nil
	}
	mech, err := c.saslMechanism()
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		Timeout:       10 * time.Second,
		DualStack:     true,
		TLS:           c.tlsConfig(),
		SASLMechanism: mech,
	}, nil
}

// transport is used by writers; nil means kafka-go's default transport.
func (c Config) transport() (*kafkago.Transport, error) {
	if !c.TLS && !c.SASLEnabled {
		return nil, nil
	}
	mech, err := c.saslMechanism()
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{TLS: c.tlsConfig(), SASL: mech}, nil
}
