package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const HeaderEventType = "x-event-type"

// PublishJSON marshals event and publishes it with key as the message id.
func PublishJSON(ctx context.Context, producer Producer, topic, eventType, key string, event interface{}) error {
	if producer == nil {
		return errors.New("producer is nil")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event failed: %w", eventType, err)
	}
	msg := NewMessage(payload)
	if key != "" {
		msg.ID = key
	}
	msg.SetHeader(HeaderEventType, eventType)
	if err := producer.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("publish %s event failed: %w", eventType, err)
	}
	return nil
}
