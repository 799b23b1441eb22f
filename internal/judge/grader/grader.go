// Package grader runs one source file against a list of test cases on the engine.
package grader

import (
	"context"
	"errors"
	"fmt"

	"codequest/internal/judge/judgeclient"
	"codequest/internal/judge/verdict"
	appErr "codequest/pkg/errors"
)

// TestCase is an input and the output it must produce.
type TestCase struct {
	Input  string
	Output string
}

// Report is the verdict plus the raw per-test results. Results[i] belongs to tests[i].
type Report struct {
	Verdict verdict.Verdict
	Results []judgeclient.Result
}

// Grader builds batch requests and aggregates their results.
type Grader struct {
	client judgeclient.Client
}

// New creates a Grader.
func New(client judgeclient.Client) (*Grader, error) {
	if client == nil {
		return nil, fmt.Errorf("judge client is required")
	}
	return &Grader{client: client}, nil
}

// Grade submits source once per test case and waits for every result.
// Errors are JudgeTimeout or JudgeSystemError; a failing verdict is not an error.
func (g *Grader) Grade(ctx context.Context, source string, languageID int, tests []TestCase) (Report, error) {
	batch := make([]judgeclient.Submission, len(tests))
	for i, tc := range tests {
		batch[i] = judgeclient.Submission{
			SourceCode:     source,
			LanguageID:     languageID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		}
	}

	tokens, err := g.client.SubmitBatch(ctx, batch)
	if err != nil {
		return Report{}, classify(ctx, err)
	}
	if len(tokens) != len(batch) {
		return Report{}, appErr.Newf(appErr.JudgeSystemError, "engine returned %d tokens for %d tests", len(tokens), len(batch))
	}
	results, err := g.client.FetchResults(ctx, tokens)
	if err != nil {
		return Report{}, classify(ctx, err)
	}
	if len(results) != len(tokens) {
		return Report{}, appErr.Newf(appErr.JudgeSystemError, "engine returned %d results for %d tests", len(results), len(tokens))
	}
	return Report{Verdict: verdict.Aggregate(results), Results: results}, nil
}

// classify keeps typed judge errors and turns an expired context into JudgeTimeout.
func classify(ctx context.Context, err error) error {
	if appErr.Is(err, appErr.JudgeTimeout) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return appErr.Wrapf(err, appErr.JudgeTimeout, "judge did not finish in time")
	}
	if appErr.Is(err, appErr.JudgeSystemError) {
		return err
	}
	return appErr.Wrapf(err, appErr.JudgeSystemError, "judge request failed")
}
