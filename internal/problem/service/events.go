package service

import (
	"context"
	"time"

	"codequest/internal/common/mq"
	"codequest/internal/problem/model"
	"codequest/pkg/utils/logger"

	"go.uber.org/zap"
)

// EventPublisher announces problem changes. A nil publisher drops events.
type EventPublisher struct {
	producer mq.Producer
	topic    string
}

// NewEventPublisher creates an EventPublisher; a nil producer disables publishing.
func NewEventPublisher(producer mq.Producer, topic string) *EventPublisher {
	if producer == nil || topic == "" {
		return nil
	}
	return &EventPublisher{producer: producer, topic: topic}
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, problem *model.Problem) {
	if p == nil || problem == nil {
		return
	}
	event := model.ProblemEvent{
		EventType:  eventType,
		ProblemID:  problem.ID,
		Title:      problem.Title,
		OccurredAt: time.Now().UTC(),
	}
	if err := mq.PublishJSON(ctx, p.producer, p.topic, eventType, problem.ID, event); err != nil {
		logger.Warn(ctx, "publish problem event failed",
			zap.String("event_type", eventType),
			zap.String("problem_id", problem.ID),
			zap.Error(err),
		)
	}
}
