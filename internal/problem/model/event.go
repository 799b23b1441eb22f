package model

import "time"

const (
	EventProblemCreated = "problem.created"
	EventProblemUpdated = "problem.updated"
	EventProblemDeleted = "problem.deleted"
)

// ProblemEvent announces a change to a problem.
type ProblemEvent struct {
	EventType  string    `json:"event_type"`
	ProblemID  string    `json:"problem_id"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
