package verdict

import (
	"testing"

	"codequest/internal/judge/judgeclient"
	"codequest/internal/testutil"
)

func result(outcome judgeclient.Outcome, seconds float64, memory int64, diagnostic string) judgeclient.Result {
	return judgeclient.Result{Outcome: outcome, Time: seconds, Memory: memory, Diagnostic: diagnostic}
}

func TestAggregate(t *testing.T) {
	cases := []struct {
		name    string
		results []judgeclient.Result
		want    Verdict
	}{
		{
			name: "all accepted",
			results: []judgeclient.Result{
				result(judgeclient.OutcomeAccepted, 0.25, 900, ""),
				result(judgeclient.OutcomeAccepted, 0.5, 1200, ""),
			},
			want: Verdict{Status: StatusAccepted, Passed: 2, Total: 2, Runtime: 0.75, Memory: 1200},
		},
		{
			name: "wrong answer with default diagnostic",
			results: []judgeclient.Result{
				result(judgeclient.OutcomeAccepted, 0.5, 100, ""),
				result(judgeclient.OutcomeWrongOutput, 0.25, 300, ""),
			},
			want: Verdict{Status: StatusWrongAnswer, Passed: 1, Total: 2, Runtime: 0.5, Memory: 300, Diagnostic: DefaultDiagnostic},
		},
		{
			name: "runtime error outranks earlier wrong answer",
			results: []judgeclient.Result{
				result(judgeclient.OutcomeWrongOutput, 0.1, 100, "first"),
				result(judgeclient.OutcomeRuntimeError, 0.1, 5000, "segfault"),
				result(judgeclient.OutcomeAccepted, 0.25, 200, ""),
			},
			want: Verdict{Status: StatusRuntimeError, Passed: 1, Total: 3, Runtime: 0.25, Memory: 5000, Diagnostic: "first"},
		},
		{
			name: "other outcome counts as runtime error",
			results: []judgeclient.Result{
				result(judgeclient.OutcomeOther, 2, 64, "Time Limit Exceeded"),
			},
			want: Verdict{Status: StatusRuntimeError, Passed: 0, Total: 1, Memory: 64, Diagnostic: "Time Limit Exceeded"},
		},
		{
			name:    "empty batch",
			results: nil,
			want:    Verdict{Status: StatusAccepted},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			testutil.AssertEqual(t, Aggregate(tc.results), tc.want)
		})
	}
}

func TestAggregateIsPure(t *testing.T) {
	results := []judgeclient.Result{
		result(judgeclient.OutcomeAccepted, 0.125, 10, ""),
		result(judgeclient.OutcomeWrongOutput, 0.5, 20, "diff"),
	}
	first := Aggregate(results)
	second := Aggregate(results)
	testutil.AssertEqual(t, first, second)
	testutil.AssertFalse(t, first.Accepted(), "a wrong answer is not accepted")
}
