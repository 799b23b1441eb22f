// Package verdict folds per-test engine results into a single pass/fail verdict.
package verdict

import (
	"codequest/internal/judge/judgeclient"
)

// Status is the aggregate outcome of a batch.
type Status string

const (
	StatusAccepted     Status = "accepted"
	StatusWrongAnswer  Status = "wrong-answer"
	StatusRuntimeError Status = "runtime-error"
)

// DefaultDiagnostic is reported when the first failing test carries no output.
const DefaultDiagnostic = "test case failed"

// Verdict summarises a batch of test results.
type Verdict struct {
	Status     Status  `json:"status"`
	Passed     int     `json:"passed"`
	Total      int     `json:"total"`
	Runtime    float64 `json:"runtime"` // seconds, summed over passing tests
	Memory     int64   `json:"memory"`  // KB, maximum over all tests
	Diagnostic string  `json:"diagnostic,omitempty"`
}

// Accepted reports whether every test passed.
func (v Verdict) Accepted() bool {
	return v.Status == StatusAccepted
}

// Aggregate is pure and order-sensitive only in which failure supplies the diagnostic.
// Any runtime-class failure makes the verdict runtime-error, even when wrong
// outputs appear earlier; outcomes outside the known classes count as runtime errors.
func Aggregate(results []judgeclient.Result) Verdict {
	v := Verdict{Status: StatusAccepted, Total: len(results)}
	failed := false
	for _, res := range results {
		if res.Memory > v.Memory {
			v.Memory = res.Memory
		}
		switch res.Outcome {
		case judgeclient.OutcomeAccepted:
			v.Passed++
			v.Runtime += res.Time
			continue
		case judgeclient.OutcomeWrongOutput:
			if v.Status == StatusAccepted {
				v.Status = StatusWrongAnswer
			}
		default:
			v.Status = StatusRuntimeError
		}
		if !failed {
			failed = true
			v.Diagnostic = res.Diagnostic
			if v.Diagnostic == "" {
				v.Diagnostic = DefaultDiagnostic
			}
		}
	}
	return v
}
