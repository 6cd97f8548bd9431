package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
)

const (
	EventPhenopacketCreated = "phenopacket.created"
	EventRunCompleted       = "run.completed"

	Source = "erker2phenopackets"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

// NewEventMessage wraps data in an event envelope. key selects the partition;
// an empty key falls back to the event id.
func NewEventMessage(eventType, key string, data map[string]interface{}, metadata map[string]string) (kafka.Message, error) {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    Source,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	if key == "" {
		key = event.ID
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(Source)},
		},
	}, nil
}

// DocumentMessage builds the phenopacket.created event of one document. The
// document id keys the message so that re-runs land on the same partition.
func DocumentMessage(runID string, doc *models.Phenopacket) (kafka.Message, error) {
	return NewEventMessage(EventPhenopacketCreated, doc.ID,
		map[string]interface{}{"phenopacket": doc},
		map[string]string{"run_id": runID},
	)
}

func (p *Producer) PublishEvent(ctx context.Context, eventType string, data map[string]interface{}) error {
	message, err := NewEventMessage(eventType, "", data, nil)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"event_type": eventType,
		"topic":      p.writer.Topic,
	}).Info("Event published successfully")
	return nil
}

// PublishDocuments emits one phenopacket.created event per document.
func (p *Producer) PublishDocuments(ctx context.Context, runID string, docs []*models.Phenopacket) error {
	messages := make([]kafka.Message, 0, len(docs))
	for _, doc := range docs {
		msg, err := DocumentMessage(runID, doc)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		logger.Log.WithError(err).WithField("run_id", runID).Error("Failed to publish phenopackets")
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"run_id": runID,
		"count":  len(messages),
		"topic":  p.writer.Topic,
	}).Info("Phenopacket events published")
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
