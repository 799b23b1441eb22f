package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codequest/internal/common/cache"
	"codequest/internal/common/mq"
	"codequest/internal/common/storage"
	"codequest/internal/judge/grader"
	"codequest/internal/judge/judgeclient"
	"codequest/internal/judge/language"
	"codequest/internal/judge/verdict"
	problemModel "codequest/internal/problem/model"
	problemRepo "codequest/internal/problem/repository"
	"codequest/internal/submit/repository"
	appErr "codequest/pkg/errors"
	"codequest/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	rateUserKeyPrefix    = "submit:rate:user:"
	defaultSourcePrefix  = "submissions"
	defaultMaxCodeBytes  = 64 * 1024
	defaultJudgeTimeout  = 60 * time.Second
	pipelineSubmit       = "submit"
	pipelineRun          = "run"
	infrastructureStatus = "error"
)

// Grader runs one source file against test cases.
type Grader interface {
	Grade(ctx context.Context, source string, languageID int, tests []grader.TestCase) (grader.Report, error)
}

// ProblemReader loads problems for judging.
type ProblemReader interface {
	GetByID(ctx context.Context, problemID string) (*problemModel.Problem, error)
}

// SolvedRecorder adds a problem to a user's solved-set. It reports whether the
// problem was newly added.
type SolvedRecorder interface {
	AddSolved(ctx context.Context, userID, problemID string) (bool, error)
}

// RateLimitConfig holds throttling configuration.
type RateLimitConfig struct {
	UserMax int
	Window  time.Duration
}

// TimeoutConfig holds timeout settings for external calls.
type TimeoutConfig struct {
	Judge   time.Duration
	DB      time.Duration
	Cache   time.Duration
	MQ      time.Duration
	Storage time.Duration
}

// Config holds submit service dependencies and settings.
type Config struct {
	SubmissionRepo repository.SubmissionRepository
	Problems       ProblemReader
	Solved         SolvedRecorder
	Registry       *language.Registry
	Grader         Grader
	Cache          cache.Cache
	Storage        storage.ObjectStorage
	Producer       mq.Producer

	EventTopic    string
	ArchiveBucket string
	ArchivePrefix string
	MaxCodeBytes  int
	RateLimit     RateLimitConfig
	Timeouts      TimeoutConfig
}

// SubmitService runs the submit and run pipelines.
type SubmitService struct {
	submissionRepo repository.SubmissionRepository
	problems       ProblemReader
	solved         SolvedRecorder
	registry       *language.Registry
	grader         Grader
	cache          cache.Cache
	archive        *archiver
	producer       mq.Producer

	eventTopic   string
	maxCodeBytes int
	rateLimit    RateLimitConfig
	timeouts     TimeoutConfig
	now          func() time.Time
}

// SubmitInput describes a graded submission.
type SubmitInput struct {
	UserID    string
	ProblemID string
	Code      string
	Language  string
}

// RunInput describes an ungraded run against the visible test cases.
type RunInput = SubmitInput

// SubmitResult is returned for a judged submission. A failing verdict is not an error.
type SubmitResult struct {
	SubmissionID    string            `json:"submission_id"`
	Accepted        bool              `json:"accepted"`
	Status          repository.Status `json:"status"`
	TotalTestCases  int               `json:"total_test_cases"`
	PassedTestCases int               `json:"passed_test_cases"`
	Runtime         float64           `json:"runtime"`
	Memory          int64             `json:"memory"`
	ErrorMessage    string            `json:"error_message,omitempty"`
}

// RunCase is the outcome of one visible test case.
type RunCase struct {
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	Stdout         string  `json:"stdout"`
	Status         string  `json:"status"`
	Time           float64 `json:"time"`
	Memory         int64   `json:"memory"`
	Diagnostic     string  `json:"diagnostic,omitempty"`
}

// RunResult is returned for a run.
type RunResult struct {
	Success      bool           `json:"success"`
	Status       verdict.Status `json:"status"`
	Passed       int            `json:"passed"`
	Total        int            `json:"total"`
	Runtime      float64        `json:"runtime"`
	Memory       int64          `json:"memory"`
	ErrorMessage string         `json:"error_message,omitempty"`
	TestCases    []RunCase      `json:"test_cases"`
}

// NewSubmitService creates a new submit service.
func NewSubmitService(cfg Config) (*SubmitService, error) {
	if cfg.SubmissionRepo == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem reader is required")
	}
	if cfg.Solved == nil {
		return nil, fmt.Errorf("solved recorder is required")
	}
	if cfg.Grader == nil {
		return nil, fmt.Errorf("grader is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = language.NewRegistry(nil)
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = defaultSourcePrefix
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
	if cfg.Timeouts.Judge <= 0 {
		cfg.Timeouts.Judge = defaultJudgeTimeout
	}
	archive, err := newArchiver(cfg.Storage, cfg.ArchiveBucket, cfg.ArchivePrefix)
	if err != nil {
		return nil, err
	}
	return &SubmitService{
		submissionRepo: cfg.SubmissionRepo,
		problems:       cfg.Problems,
		solved:         cfg.Solved,
		registry:       cfg.Registry,
		grader:         cfg.Grader,
		cache:          cfg.Cache,
		archive:        archive,
		producer:       cfg.Producer,
		eventTopic:     cfg.EventTopic,
		maxCodeBytes:   cfg.MaxCodeBytes,
		rateLimit:      cfg.RateLimit,
		timeouts:       cfg.Timeouts,
		now:            time.Now,
	}, nil
}

// Submit grades code against the hidden test cases and records the outcome.
//
// The submission is stored as pending before the engine is called and its
// terminal status is written once afterwards (retried once on a store error). If the engine fails or times out, the record ends up
// failed-infrastructure and the typed judge error is returned.
func (s *SubmitService) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	problem, languageID, err := s.prepare(ctx, input)
	if err != nil {
		return SubmitResult{}, err
	}
	lang := language.Normalize(input.Language)

	now := s.now().UTC()
	submission := &repository.Submission{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		ProblemID:      problem.ID,
		Code:           input.Code,
		Language:       lang,
		Status:         repository.StatusPending,
		TestCasesTotal: len(problem.HiddenTestCases),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.createSubmission(ctx, submission); err != nil {
		return SubmitResult{}, err
	}

	tests := make([]grader.TestCase, len(problem.HiddenTestCases))
	for i, tc := range problem.HiddenTestCases {
		tests[i] = grader.TestCase{Input: tc.Input, Output: tc.Output}
	}

	logger.Info(ctx, "submission judging started",
		zap.String("submission_id", submission.ID),
		zap.String("problem_id", problem.ID),
		zap.String("language", lang),
		zap.Int("tests", len(tests)),
	)
	report, gradeErr := s.grade(ctx, pipelineSubmit, input.Code, languageID, tests)

	// The final write must land even if the request context is gone.
	persistCtx := context.WithoutCancel(ctx)
	if gradeErr != nil {
		submission.Status = repository.StatusFailedInfrastructure
		submission.ErrorMessage = gradeErr.Error()
		submission.UpdatedAt = s.now().UTC()
		s.persistResult(persistCtx, submission)
		logger.Warn(ctx, "submission judging failed",
			zap.String("submission_id", submission.ID),
			zap.Error(gradeErr),
		)
		pipelineTotal.WithLabelValues(pipelineSubmit, string(submission.Status)).Inc()
		s.publishJudged(persistCtx, submission)
		return SubmitResult{}, gradeErr
	}

	v := report.Verdict
	submission.Status = repository.Status(v.Status)
	submission.TestCasesPassed = v.Passed
	submission.Runtime = v.Runtime
	submission.Memory = v.Memory
	submission.ErrorMessage = v.Diagnostic
	submission.UpdatedAt = s.now().UTC()
	s.persistResult(persistCtx, submission)

	if v.Accepted() {
		ctxDB := withTimeout(persistCtx, s.timeouts.DB)
		added, err := s.solved.AddSolved(ctxDB.ctx, input.UserID, problem.ID)
		ctxDB.cancel()
		if err != nil {
			return SubmitResult{}, appErr.Wrapf(err, appErr.UserUpdateFailed, "record solved problem failed")
		}
		if added {
			logger.Info(ctx, "problem solved", zap.String("problem_id", problem.ID))
		}
	}

	logger.Info(ctx, "submission judged",
		zap.String("submission_id", submission.ID),
		zap.String("status", string(submission.Status)),
		zap.Int("passed", v.Passed),
		zap.Int("total", v.Total),
	)
	pipelineTotal.WithLabelValues(pipelineSubmit, string(submission.Status)).Inc()
	s.archiveSource(persistCtx, submission)
	s.publishJudged(persistCtx, submission)

	return SubmitResult{
		SubmissionID:    submission.ID,
		Accepted:        v.Accepted(),
		Status:          submission.Status,
		TotalTestCases:  submission.TestCasesTotal,
		PassedTestCases: v.Passed,
		Runtime:         v.Runtime,
		Memory:          v.Memory,
		ErrorMessage:    v.Diagnostic,
	}, nil
}

// Run grades code against the visible test cases without recording anything.
func (s *SubmitService) Run(ctx context.Context, input RunInput) (RunResult, error) {
	problem, languageID, err := s.prepare(ctx, input)
	if err != nil {
		return RunResult{}, err
	}

	tests := make([]grader.TestCase, len(problem.VisibleTestCases))
	for i, tc := range problem.VisibleTestCases {
		tests[i] = grader.TestCase{Input: tc.Input, Output: tc.Output}
	}
	report, err := s.grade(ctx, pipelineRun, input.Code, languageID, tests)
	if err != nil {
		pipelineTotal.WithLabelValues(pipelineRun, infrastructureStatus).Inc()
		logger.Warn(ctx, "run failed", zap.String("problem_id", problem.ID), zap.Error(err))
		return RunResult{}, err
	}

	v := report.Verdict
	cases := make([]RunCase, len(tests))
	for i, res := range report.Results {
		cases[i] = RunCase{
			Input:          tests[i].Input,
			ExpectedOutput: tests[i].Output,
			Stdout:         res.Stdout,
			Status:         caseStatus(res),
			Time:           res.Time,
			Memory:         res.Memory,
			Diagnostic:     res.Diagnostic,
		}
	}
	pipelineTotal.WithLabelValues(pipelineRun, string(v.Status)).Inc()
	return RunResult{
		Success:      v.Accepted(),
		Status:       v.Status,
		Passed:       v.Passed,
		Total:        v.Total,
		Runtime:      v.Runtime,
		Memory:       v.Memory,
		ErrorMessage: v.Diagnostic,
		TestCases:    cases,
	}, nil
}

// ListForProblem returns a user's submissions for a problem, newest first.
func (s *SubmitService) ListForProblem(ctx context.Context, userID, problemID string) ([]repository.Submission, error) {
	if userID == "" {
		return nil, appErr.ValidationError("user_id", "required")
	}
	if problemID == "" {
		return nil, appErr.ValidationError("problem_id", "required")
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	submissions, err := s.submissionRepo.ListByUserProblem(ctxDB.ctx, userID, problemID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
	}
	return submissions, nil
}

// GetSource returns a submission owned by userID, reading the code from the archive
// when the stored record has none.
func (s *SubmitService) GetSource(ctx context.Context, userID, problemID, submissionID string) (*repository.Submission, error) {
	if submissionID == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	submission, err := s.submissionRepo.GetByID(ctxDB.ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, appErr.New(appErr.SubmissionNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get submission failed")
	}
	if submission.UserID != userID || submission.ProblemID != problemID {
		return nil, appErr.New(appErr.SubmissionNotFound)
	}
	if submission.Code == "" && s.archive != nil {
		ctxStorage := withTimeout(ctx, s.timeouts.Storage)
		defer ctxStorage.cancel()
		code, err := s.archive.get(ctxStorage.ctx, submission.ProblemID, submission.ID)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.ServiceUnavailable, "read archived source failed")
		}
		submission.Code = code
	}
	return submission, nil
}

// PurgeProblem deletes every submission for a problem and its archived sources.
func (s *SubmitService) PurgeProblem(ctx context.Context, problemID string) error {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	removed, err := s.submissionRepo.DeleteByProblem(ctxDB.ctx, problemID)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "delete submissions failed")
	}
	logger.Info(ctx, "problem submissions purged", zap.String("problem_id", problemID), zap.Int64("count", removed))
	s.archive.removeProblem(ctx, problemID)
	return nil
}

// PurgeUser deletes every submission made by a user and their archived sources.
func (s *SubmitService) PurgeUser(ctx context.Context, userID string) error {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	var owned []repository.Submission
	if s.archive != nil {
		var err error
		owned, err = s.submissionRepo.ListByUser(ctxDB.ctx, userID)
		if err != nil {
			return appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
		}
	}
	removed, err := s.submissionRepo.DeleteByUser(ctxDB.ctx, userID)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "delete submissions failed")
	}
	logger.Info(ctx, "user submissions purged", zap.String("user_id", userID), zap.Int64("count", removed))
	s.archive.removeSubmissions(ctx, owned)
	return nil
}

// prepare validates input, applies the rate limit, loads the problem and resolves the language.
// Nothing is stored and the engine is not called when it fails.
func (s *SubmitService) prepare(ctx context.Context, input SubmitInput) (*problemModel.Problem, int, error) {
	if err := s.validateInput(input); err != nil {
		return nil, 0, err
	}
	if err := s.checkRateLimit(ctx, input.UserID); err != nil {
		return nil, 0, err
	}

	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	problem, err := s.problems.GetByID(ctxDB.ctx, input.ProblemID)
	if err != nil {
		if errors.Is(err, problemRepo.ErrProblemNotFound) {
			return nil, 0, appErr.New(appErr.ProblemNotFound).WithDetail("problem_id", input.ProblemID)
		}
		return nil, 0, appErr.Wrapf(err, appErr.DatabaseError, "load problem failed")
	}
	languageID, err := s.registry.ResolveAlias(input.Language)
	if err != nil {
		return nil, 0, err
	}
	return problem, languageID, nil
}

func (s *SubmitService) grade(ctx context.Context, pipeline, source string, languageID int, tests []grader.TestCase) (grader.Report, error) {
	ctxJudge, cancel := context.WithTimeout(ctx, s.timeouts.Judge)
	defer cancel()
	start := s.now()
	report, err := s.grader.Grade(ctxJudge, source, languageID, tests)
	gradeDuration.WithLabelValues(pipeline).Observe(s.now().Sub(start).Seconds())
	return report, err
}

func (s *SubmitService) validateInput(input SubmitInput) error {
	if input.UserID == "" {
		return appErr.ValidationError("user_id", "required")
	}
	if input.ProblemID == "" {
		return appErr.ValidationError("problem_id", "required")
	}
	if strings.TrimSpace(input.Language) == "" {
		return appErr.ValidationError("language", "required")
	}
	if strings.TrimSpace(input.Code) == "" {
		return appErr.ValidationError("code", "required")
	}
	if len(input.Code) > s.maxCodeBytes {
		return appErr.New(appErr.CodeTooLarge).WithDetail("max_bytes", s.maxCodeBytes)
	}
	return nil
}

func (s *SubmitService) checkRateLimit(ctx context.Context, userID string) error {
	if s.cache == nil || s.rateLimit.Window <= 0 || s.rateLimit.UserMax <= 0 {
		return nil
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()

	key := rateUserKeyPrefix + userID
	count, err := s.cache.Incr(ctxCache.ctx, key)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "rate limit check failed")
	}
	if count == 1 {
		_ = s.cache.Expire(ctxCache.ctx, key, s.rateLimit.Window)
	}
	if int(count) > s.rateLimit.UserMax {
		return appErr.New(appErr.SubmitTooFrequently)
	}
	return nil
}

func (s *SubmitService) createSubmission(ctx context.Context, submission *repository.Submission) error {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	if err := s.submissionRepo.Create(ctxDB.ctx, submission); err != nil {
		return appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
	}
	return nil
}

func (s *SubmitService) updateSubmission(ctx context.Context, submission *repository.Submission) error {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	err := s.submissionRepo.UpdateResult(ctxDB.ctx, submission.ID, repository.Result{
		Status:          submission.Status,
		TestCasesPassed: submission.TestCasesPassed,
		Runtime:         submission.Runtime,
		Memory:          submission.Memory,
		ErrorMessage:    submission.ErrorMessage,
		UpdatedAt:       submission.UpdatedAt,
	})
	if err != nil {
		return appErr.Wrapf(err, appErr.SubmissionUpdateFailed, "update submission failed")
	}
	return nil
}

// persistResult writes the terminal status, retrying once. The verdict stands
// even when both writes fail, so the failure is logged rather than returned.
func (s *SubmitService) persistResult(ctx context.Context, submission *repository.Submission) {
	err := s.updateSubmission(ctx, submission)
	if err == nil {
		return
	}
	logger.Warn(ctx, "record submission result failed, retrying",
		zap.String("submission_id", submission.ID),
		zap.Error(err),
	)
	if err = s.updateSubmission(ctx, submission); err != nil {
		logger.Error(ctx, "record submission result failed",
			zap.String("submission_id", submission.ID),
			zap.String("status", string(submission.Status)),
			zap.Error(err),
		)
	}
}

func (s *SubmitService) archiveSource(ctx context.Context, submission *repository.Submission) {
	if s.archive == nil {
		return
	}
	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	defer ctxStorage.cancel()
	if err := s.archive.put(ctxStorage.ctx, submission); err != nil {
		logger.Warn(ctx, "archive source failed", zap.String("submission_id", submission.ID), zap.Error(err))
	}
}

// caseStatus prefers the engine's description and falls back to the decoded
// outcome when only a status id came back.
func caseStatus(res judgeclient.Result) string {
	if res.Description != "" {
		return res.Description
	}
	return string(res.Outcome)
}

type timeoutCtx struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func withTimeout(ctx context.Context, timeout time.Duration) timeoutCtx {
	if timeout <= 0 {
		return timeoutCtx{ctx: ctx, cancel: func() {}}
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	return timeoutCtx{ctx: ctxTimeout, cancel: cancel}
}
