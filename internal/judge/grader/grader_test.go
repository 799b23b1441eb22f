package grader

import (
	"context"
	"errors"
	"testing"

	"codequest/internal/judge/judgeclient"
	"codequest/internal/judge/verdict"
	"codequest/internal/testutil"
	appErr "codequest/pkg/errors"
)

type stubClient struct {
	submitted []judgeclient.Submission
	results   []judgeclient.Result
	submitErr error
	fetchErr  error
}

func (s *stubClient) SubmitBatch(ctx context.Context, subs []judgeclient.Submission) ([]string, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submitted = subs
	tokens := make([]string, len(subs))
	for i := range subs {
		tokens[i] = string(rune('a' + i))
	}
	return tokens, nil
}

func (s *stubClient) FetchResults(ctx context.Context, tokens []string) ([]judgeclient.Result, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.results, nil
}

func TestGradeBuildsBatchInOrder(t *testing.T) {
	client := &stubClient{results: []judgeclient.Result{
		{Outcome: judgeclient.OutcomeAccepted, Time: 0.5, Memory: 10},
		{Outcome: judgeclient.OutcomeAccepted, Time: 0.25, Memory: 30},
	}}
	g, err := New(client)
	testutil.MustNoError(t, err)

	report, err := g.Grade(context.Background(), "print", 63, []TestCase{{Input: "1", Output: "2"}, {Input: "3", Output: "4"}})
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, len(client.submitted), 2)
	testutil.AssertEqual(t, client.submitted[1], judgeclient.Submission{SourceCode: "print", LanguageID: 63, Stdin: "3", ExpectedOutput: "4"})
	testutil.AssertEqual(t, report.Verdict.Status, verdict.StatusAccepted)
	testutil.AssertEqual(t, report.Verdict.Runtime, 0.75)
	testutil.AssertEqual(t, report.Verdict.Memory, int64(30))
}

func TestGradeResultCountMismatch(t *testing.T) {
	client := &stubClient{results: []judgeclient.Result{{Outcome: judgeclient.OutcomeAccepted}}}
	g, _ := New(client)

	_, err := g.Grade(context.Background(), "x", 54, []TestCase{{}, {}})
	if !appErr.Is(err, appErr.JudgeSystemError) {
		t.Fatalf("expected JudgeSystemError, got %v", err)
	}
}

func TestGradeClassifiesErrors(t *testing.T) {
	g, _ := New(&stubClient{fetchErr: appErr.New(appErr.JudgeTimeout)})
	_, err := g.Grade(context.Background(), "x", 54, []TestCase{{}})
	testutil.AssertTrue(t, appErr.Is(err, appErr.JudgeTimeout), "timeout should pass through")

	g, _ = New(&stubClient{submitErr: errors.New("dial tcp: refused")})
	_, err = g.Grade(context.Background(), "x", 54, []TestCase{{}})
	testutil.AssertTrue(t, appErr.Is(err, appErr.JudgeSystemError), "transport failure should be a system error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, _ = New(&stubClient{submitErr: appErr.New(appErr.JudgeSystemError)})
	_, err = g.Grade(ctx, "x", 54, []TestCase{{}})
	testutil.AssertTrue(t, appErr.Is(err, appErr.JudgeTimeout), "expired context should be a timeout")
}
