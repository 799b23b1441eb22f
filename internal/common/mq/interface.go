package mq

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Producer publishes messages to topics.
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error
	PublishBatch(ctx context.Context, topic string, messages []*Message) error
	Ping(ctx context.Context) error
	Close() error
}

// Message is a queue message.
type Message struct {
	// ID doubles as the partition key.
	ID        string            `json:"id"`
	Body      []byte            `json:"body"`
	Headers   map[string]string `json:"headers"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(body []byte) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// SetHeader sets a header value
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}
