// Package judgeclient talks to a Judge0-compatible execution engine.
package judgeclient

import "context"

// Submission is one entry of a batch request. Order inside a batch is significant:
// tokens and results correspond to submissions by position.
type Submission struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

// Outcome is the engine status decoded into the cases the platform acts on.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeWrongOutput  Outcome = "wrong-output"
	OutcomeRuntimeError Outcome = "runtime-error"
	OutcomeOther        Outcome = "other"
)

// Judge0 status ids.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeSIGSEGV    = 7
	StatusRuntimeOther      = 12
	StatusInternalError     = 13
	StatusExecFormatError   = 14
)

// DecodeStatus maps a Judge0 status id to an Outcome. It is the only place numeric
// status codes are interpreted.
func DecodeStatus(statusID int) Outcome {
	switch {
	case statusID == StatusAccepted:
		return OutcomeAccepted
	case statusID == StatusWrongAnswer:
		return OutcomeWrongOutput
	case statusID >= StatusCompilationError && statusID <= StatusRuntimeOther:
		return OutcomeRuntimeError
	default:
		return OutcomeOther
	}
}

// Terminal reports whether the engine has finished with a submission.
func Terminal(statusID int) bool {
	return statusID > StatusProcessing
}

// Result is the per-test outcome of one submission.
type Result struct {
	Token       string  `json:"token"`
	StatusID    int     `json:"status_id"`
	Outcome     Outcome `json:"outcome"`
	Description string  `json:"description"`
	Time        float64 `json:"time"`   // seconds
	Memory      int64   `json:"memory"` // KB
	Stdout      string  `json:"stdout,omitempty"`
	Diagnostic  string  `json:"diagnostic,omitempty"`
}

// Client is the engine surface the pipelines depend on.
type Client interface {
	// SubmitBatch enqueues submissions and returns one token per submission, in order.
	SubmitBatch(ctx context.Context, submissions []Submission) ([]string, error)
	// FetchResults blocks until every token reached a terminal status, or the poll
	// budget is exhausted, and returns results in token order.
	FetchResults(ctx context.Context, tokens []string) ([]Result, error)
}
