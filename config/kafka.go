package config

import (
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter builds a writer for the domain event topic. Messages are keyed
// by aggregate so events of one cake or reservation keep their order.
func NewKafkaWriter(settings Settings) (*kafka.Writer, error) {
	if len(settings.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS not set")
	}
	if settings.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC not set")
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(settings.KafkaBrokers...),
		Topic:                  settings.KafkaTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}, nil
}
