package workflow

import (
	"context"
	"fmt"
	"strconv"

	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"cloud.google.com/go/pubsub"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher delivers one outbox record and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, record models.OutboxRecord) (string, error)
}

func eventAttributes(record models.OutboxRecord) map[string]string {
	return map[string]string{
		"event_type":     string(record.EventType),
		"aggregate_type": record.AggregateType,
		"aggregate_id":   strconv.Itoa(record.AggregateId),
		"correlation_id": record.CorrelationId,
		"outbox_id":      strconv.Itoa(record.ID),
	}
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	Logger *logrus.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, record models.OutboxRecord) (string, error) {
	fields := logrus.Fields{"payload": string(record.Payload)}
	var payload map[string]interface{}
	if err := utils.UnmarshalFromJSON(record.Payload, &payload); err == nil {
		fields["payload"] = payload
	}
	for k, v := range eventAttributes(record) {
		fields[k] = v
	}
	loggerOrDefault(p.Logger).WithFields(fields).Info("domain event")
	return "log-" + strconv.Itoa(record.ID), nil
}

// PubSubPublisher publishes to a Google Cloud Pub/Sub topic, ordered per aggregate.
type PubSubPublisher struct {
	Topic *pubsub.Topic
}

func NewPubSubPublisher(topic *pubsub.Topic) *PubSubPublisher {
	topic.EnableMessageOrdering = true
	return &PubSubPublisher{Topic: topic}
}

func (p *PubSubPublisher) Publish(ctx context.Context, record models.OutboxRecord) (string, error) {
	result := p.Topic.Publish(ctx, &pubsub.Message{
		Data:        record.Payload,
		Attributes:  eventAttributes(record),
		OrderingKey: fmt.Sprintf("%s:%d", record.AggregateType, record.AggregateId),
	})
	id, err := result.Get(ctx)
	if err != nil {
		// a failed ordered publish pauses the key until resumed
		p.Topic.ResumePublish(fmt.Sprintf("%s:%d", record.AggregateType, record.AggregateId))
		return "", err
	}
	return id, nil
}

// KafkaPublisher writes to a Kafka topic keyed by aggregate.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func (p *KafkaPublisher) Publish(ctx context.Context, record models.OutboxRecord) (string, error) {
	headers := make([]kafka.Header, 0, 5)
	for k, v := range eventAttributes(record) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	msg := kafka.Message{
		Key:     []byte(fmt.Sprintf("%s:%d", record.AggregateType, record.AggregateId)),
		Value:   record.Payload,
		Headers: headers,
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return "", err
	}
	return "kafka-" + strconv.Itoa(record.ID), nil
}
