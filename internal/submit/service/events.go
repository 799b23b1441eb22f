package service

import (
	"context"
	"time"

	"codequest/internal/common/mq"
	"codequest/internal/submit/repository"
	"codequest/pkg/utils/logger"

	"go.uber.org/zap"
)

// EventSubmissionJudged is published once per finished submission.
const EventSubmissionJudged = "submission.judged"

// JudgedEvent announces the final state of a submission.
type JudgedEvent struct {
	EventType       string            `json:"event_type"`
	SubmissionID    string            `json:"submission_id"`
	UserID          string            `json:"user_id"`
	ProblemID       string            `json:"problem_id"`
	Language        string            `json:"language"`
	Status          repository.Status `json:"status"`
	TestCasesPassed int               `json:"test_cases_passed"`
	TestCasesTotal  int               `json:"test_cases_total"`
	Runtime         float64           `json:"runtime"`
	Memory          int64             `json:"memory"`
	OccurredAt      time.Time         `json:"occurred_at"`
}

func (s *SubmitService) publishJudged(ctx context.Context, submission *repository.Submission) {
	if s.producer == nil || s.eventTopic == "" {
		return
	}
	event := JudgedEvent{
		EventType:       EventSubmissionJudged,
		SubmissionID:    submission.ID,
		UserID:          submission.UserID,
		ProblemID:       submission.ProblemID,
		Language:        submission.Language,
		Status:          submission.Status,
		TestCasesPassed: submission.TestCasesPassed,
		TestCasesTotal:  submission.TestCasesTotal,
		Runtime:         submission.Runtime,
		Memory:          submission.Memory,
		OccurredAt:      submission.UpdatedAt,
	}
	ctxMQ := withTimeout(ctx, s.timeouts.MQ)
	defer ctxMQ.cancel()
	if err := mq.PublishJSON(ctxMQ.ctx, s.producer, s.eventTopic, EventSubmissionJudged, submission.ID, event); err != nil {
		logger.Warn(ctx, "publish judged event failed", zap.String("submission_id", submission.ID), zap.Error(err))
	}
}
