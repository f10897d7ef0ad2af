// Package events publishes domain events about files and suggestions.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"file-organizer/backend/go/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	FileUploaded        = "file.uploaded"
	FileDeleted         = "file.deleted"
	SuggestionGenerated = "suggestion.generated"
	SuggestionApplied   = "suggestion.applied"
)

// Event is the envelope written to the topic. Subject is the file or folder id
// and doubles as the partition key.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Subject    string                 `json:"subject"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// New builds an event stamped with a fresh id and the current time.
func New(eventType, subject string, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers events. Delivery is best effort; callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                          { return nil }

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by subject.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    *logger.Logger
}

func NewKafkaPublisher(w messageWriter, topic string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Subject),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		p.log.WithError(err).WithPayload(map[string]interface{}{"topic": p.topic, "type": e.Type}).
			Error("failed to write event to kafka")
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
