package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codequest/internal/judge/grader"
	"codequest/internal/judge/language"
	"codequest/internal/problem/model"
	appErr "codequest/pkg/errors"
	"codequest/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxTitleLength  = 200
	maxTestCases    = 100
	maxSourceBytes  = 64 * 1024
	maxTestIOLength = 1 << 20
)

// Draft is the author-supplied content of a problem.
type Draft struct {
	Title             string
	Description       string
	Difficulty        model.Difficulty
	Tag               model.Tag
	VisibleTestCases  []model.VisibleTestCase
	HiddenTestCases   []model.HiddenTestCase
	StartCode         []model.StartCode
	ReferenceSolution []model.ReferenceSolution
}

// Validate checks the draft structure, resolves every declared language and
// runs each reference solution against the visible test cases.
//
// Validate blocks for one judge round trip per reference solution (run
// concurrently up to the configured limit) and is bounded by the validation
// timeout. The first failing solution in declaration order is reported, so the
// result does not depend on which solution the engine finishes first.
func (s *ProblemService) Validate(ctx context.Context, draft Draft) error {
	if err := validateStructure(draft); err != nil {
		return err
	}

	engineIDs := make([]int, len(draft.ReferenceSolution))
	for i, ref := range draft.ReferenceSolution {
		id, err := s.registry.ResolveAlias(ref.Language)
		if err != nil {
			return err
		}
		engineIDs[i] = id
	}
	for _, start := range draft.StartCode {
		if _, err := s.registry.ResolveAlias(start.Language); err != nil {
			return err
		}
	}

	return s.verifyReferenceSolutions(ctx, draft, engineIDs)
}

func (s *ProblemService) verifyReferenceSolutions(ctx context.Context, draft Draft, engineIDs []int) error {
	tests := make([]grader.TestCase, len(draft.VisibleTestCases))
	for i, tc := range draft.VisibleTestCases {
		tests[i] = grader.TestCase{Input: tc.Input, Output: tc.Output}
	}

	ctx, cancel := context.WithTimeout(ctx, s.validationTimeout)
	defer cancel()

	start := time.Now()
	reports := make([]grader.Report, len(draft.ReferenceSolution))
	errs := make([]error, len(draft.ReferenceSolution))

	var g errgroup.Group
	g.SetLimit(s.validationConcurrency)
	for i, ref := range draft.ReferenceSolution {
		i, ref := i, ref
		g.Go(func() error {
			reports[i], errs[i] = s.grader.Grade(ctx, ref.CompleteCode, engineIDs[i], tests)
			return nil
		})
	}
	_ = g.Wait()

	for i, ref := range draft.ReferenceSolution {
		lang := language.Normalize(ref.Language)
		if errs[i] != nil {
			logger.Warn(ctx, "reference solution could not be judged",
				zap.String("language", lang),
				zap.Error(errs[i]),
			)
			return errs[i]
		}
		v := reports[i].Verdict
		if !v.Accepted() {
			logger.Info(ctx, "reference solution rejected",
				zap.String("language", lang),
				zap.String("status", string(v.Status)),
				zap.Int("passed", v.Passed),
				zap.Int("total", v.Total),
			)
			return appErr.Newf(appErr.ReferenceSolutionFailed,
				"reference solution for %s failed: %s", ref.Language, v.Diagnostic).
				WithDetail("language", ref.Language).
				WithDetail("status", string(v.Status)).
				WithDetail("diagnostic", v.Diagnostic).
				WithDetail("passed", v.Passed).
				WithDetail("total", v.Total)
		}
	}

	logger.Info(ctx, "reference solutions verified",
		zap.Int("solutions", len(draft.ReferenceSolution)),
		zap.Int("visible_tests", len(tests)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func validateStructure(d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return appErr.ValidationError("title", "title is required")
	}
	if len(d.Title) > maxTitleLength {
		return appErr.ValidationError("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if strings.TrimSpace(d.Description) == "" {
		return appErr.ValidationError("description", "description is required")
	}
	if !d.Difficulty.Valid() {
		return appErr.Newf(appErr.InvalidDifficulty, "difficulty %q must be easy, medium or hard", d.Difficulty)
	}
	if !d.Tag.Valid() {
		return appErr.Newf(appErr.InvalidTag, "tag %q must be array, linkedList, graph or dp", d.Tag)
	}
	if len(d.VisibleTestCases) == 0 {
		return appErr.ValidationError("visible_test_cases", "at least one visible test case is required")
	}
	if len(d.HiddenTestCases) == 0 {
		return appErr.ValidationError("hidden_test_cases", "at least one hidden test case is required")
	}
	if len(d.VisibleTestCases) > maxTestCases || len(d.HiddenTestCases) > maxTestCases {
		return appErr.ValidationError("test_cases", fmt.Sprintf("at most %d test cases per kind", maxTestCases))
	}
	for i, tc := range d.VisibleTestCases {
		if len(tc.Input) > maxTestIOLength || len(tc.Output) > maxTestIOLength {
			return appErr.Newf(appErr.TestCaseInvalid, "visible test case %d is too large", i)
		}
	}
	for i, tc := range d.HiddenTestCases {
		if len(tc.Input) > maxTestIOLength || len(tc.Output) > maxTestIOLength {
			return appErr.Newf(appErr.TestCaseInvalid, "hidden test case %d is too large", i)
		}
	}
	if len(d.ReferenceSolution) == 0 {
		return appErr.ValidationError("reference_solution", "at least one reference solution is required")
	}
	for i, ref := range d.ReferenceSolution {
		if strings.TrimSpace(ref.CompleteCode) == "" {
			return appErr.ValidationError("reference_solution", fmt.Sprintf("solution %d has no code", i))
		}
		if len(ref.CompleteCode) > maxSourceBytes {
			return appErr.ValidationError("reference_solution", fmt.Sprintf("solution %d exceeds %d bytes", i, maxSourceBytes))
		}
	}
	return nil
}
