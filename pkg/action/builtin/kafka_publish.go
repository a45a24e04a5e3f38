package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const (
	// KafkaPublishActionType publishes the dispatch request to a Kafka topic
	// consumed by the notification or UI delivery service.
	KafkaPublishActionType = "kafka_publish"

	requestIDHeader = "request_id"
)

// KafkaPublishAction writes dispatch requests to Kafka, keyed by user ID so a
// user's interventions stay ordered within a partition.
type KafkaPublishAction struct {
	config   action.ActionConfig
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublishAction creates a new Kafka publish action.
func NewKafkaPublishAction(config action.ActionConfig, producer sarama.SyncProducer) (*KafkaPublishAction, error) {
	topic := config.GetParameterString("topic", "")
	if topic == "" {
		return nil, fmt.Errorf("%w: %s requires topic", action.ErrInvalidConfig, config.ID)
	}
	if producer == nil {
		return nil, fmt.Errorf("%w: %s requires a Kafka producer", action.ErrMissingDependency, config.ID)
	}

	logrus.Infof("creating kafka publish action: topic=%s", topic)

	return &KafkaPublishAction{
		config:   config,
		producer: producer,
		topic:    topic,
	}, nil
}

// ID returns the action identifier.
func (a *KafkaPublishAction) ID() string {
	return a.config.ID
}

// Name returns the action name.
func (a *KafkaPublishAction) Name() string {
	return "Publish to Kafka"
}

// Config returns the action configuration.
func (a *KafkaPublishAction) Config() action.ActionConfig {
	return a.config
}

// Dispatch publishes the request. Consumers deduplicate on the request_id header.
func (a *KafkaPublishAction) Dispatch(ctx context.Context, req *action.DispatchRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: a.topic,
		Key:   sarama.StringEncoder(req.UserID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(requestIDHeader), Value: []byte(req.RequestID)},
		},
	}

	partition, offset, err := a.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", a.topic, err)
	}

	logrus.Infof("published intervention %s for user %s to %s[%d]@%d",
		req.InterventionID, req.UserID, a.topic, partition, offset)
	return nil
}
