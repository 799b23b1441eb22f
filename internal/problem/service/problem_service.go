package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codequest/internal/judge/grader"
	"codequest/internal/judge/language"
	"codequest/internal/problem/model"
	"codequest/internal/problem/repository"
	appErr "codequest/pkg/errors"
	"codequest/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultValidationTimeout     = 60 * time.Second
	defaultValidationConcurrency = 3
)

// Grader runs one source file against test cases.
type Grader interface {
	Grade(ctx context.Context, source string, languageID int, tests []grader.TestCase) (grader.Report, error)
}

// SubmissionPurger removes every submission recorded against a problem.
type SubmissionPurger interface {
	PurgeProblem(ctx context.Context, problemID string) error
}

// Config wires a ProblemService.
type Config struct {
	Repo                  repository.ProblemRepository
	Registry              *language.Registry
	Grader                Grader
	Submissions           SubmissionPurger
	Events                *EventPublisher
	ValidationTimeout     time.Duration
	ValidationConcurrency int
}

// ProblemService handles problem authoring and queries.
type ProblemService struct {
	repo                  repository.ProblemRepository
	registry              *language.Registry
	grader                Grader
	submissions           SubmissionPurger
	events                *EventPublisher
	validationTimeout     time.Duration
	validationConcurrency int
	now                   func() time.Time
}

// NewProblemService creates a new ProblemService.
func NewProblemService(cfg Config) (*ProblemService, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Grader == nil {
		return nil, fmt.Errorf("grader is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = language.NewRegistry(nil)
	}
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = defaultValidationTimeout
	}
	if cfg.ValidationConcurrency <= 0 {
		cfg.ValidationConcurrency = defaultValidationConcurrency
	}
	return &ProblemService{
		repo:                  cfg.Repo,
		registry:              cfg.Registry,
		grader:                cfg.Grader,
		submissions:           cfg.Submissions,
		events:                cfg.Events,
		validationTimeout:     cfg.ValidationTimeout,
		validationConcurrency: cfg.ValidationConcurrency,
		now:                   time.Now,
	}, nil
}

// Create validates draft and stores it as a new problem owned by creatorID.
func (s *ProblemService) Create(ctx context.Context, creatorID string, draft Draft) (*model.Problem, error) {
	if err := s.Validate(ctx, draft); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	problem := draftToProblem(draft)
	problem.ID = uuid.NewString()
	problem.CreatorID = creatorID
	problem.CreatedAt = now
	problem.UpdatedAt = now

	if err := s.repo.Create(ctx, problem); err != nil {
		return nil, appErr.Wrapf(err, appErr.ProblemCreateFailed, "create problem failed")
	}
	logger.Info(ctx, "problem created",
		zap.String("problem_id", problem.ID),
		zap.String("creator_id", creatorID),
		zap.String("difficulty", string(problem.Difficulty)),
	)
	s.events.publish(ctx, model.EventProblemCreated, problem)
	return problem, nil
}

// Update validates draft and replaces the content of an existing problem.
// The creator and creation time are kept.
func (s *ProblemService) Update(ctx context.Context, problemID string, draft Draft) (*model.Problem, error) {
	if problemID == "" {
		return nil, appErr.ValidationError("id", "problem id is required")
	}
	existing, err := s.GetAdmin(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(ctx, draft); err != nil {
		return nil, err
	}

	problem := draftToProblem(draft)
	problem.ID = existing.ID
	problem.CreatorID = existing.CreatorID
	problem.CreatedAt = existing.CreatedAt
	problem.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, problem); err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, appErr.New(appErr.ProblemNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.ProblemUpdateFailed, "update problem failed")
	}
	logger.Info(ctx, "problem updated", zap.String("problem_id", problemID))
	s.events.publish(ctx, model.EventProblemUpdated, problem)
	return problem, nil
}

// Delete removes a problem and every submission made against it.
func (s *ProblemService) Delete(ctx context.Context, problemID string) error {
	if problemID == "" {
		return appErr.ValidationError("id", "problem id is required")
	}
	problem, err := s.GetAdmin(ctx, problemID)
	if err != nil {
		return err
	}

	if s.submissions != nil {
		if err := s.submissions.PurgeProblem(ctx, problemID); err != nil {
			return appErr.Wrapf(err, appErr.ProblemDeleteFailed, "purge submissions failed")
		}
	}
	if err := s.repo.Delete(ctx, problemID); err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return appErr.New(appErr.ProblemNotFound)
		}
		return appErr.Wrapf(err, appErr.ProblemDeleteFailed, "delete problem failed")
	}
	logger.Info(ctx, "problem deleted", zap.String("problem_id", problemID))
	s.events.publish(ctx, model.EventProblemDeleted, problem)
	return nil
}

// GetAdmin returns the stored problem including hidden test cases.
func (s *ProblemService) GetAdmin(ctx context.Context, problemID string) (*model.Problem, error) {
	if problemID == "" {
		return nil, appErr.ValidationError("id", "problem id is required")
	}
	problem, err := s.repo.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return nil, appErr.New(appErr.ProblemNotFound).WithDetail("problem_id", problemID)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get problem failed")
	}
	return problem, nil
}

// Get returns the public view of a problem.
func (s *ProblemService) Get(ctx context.Context, problemID string) (model.PublicProblem, error) {
	problem, err := s.GetAdmin(ctx, problemID)
	if err != nil {
		return model.PublicProblem{}, err
	}
	return problem.Public(), nil
}

// List returns every problem in creation order.
func (s *ProblemService) List(ctx context.Context) ([]model.Summary, error) {
	problems, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list problems failed")
	}
	return problems, nil
}

// ListByIDs returns the summaries of the given problems; unknown ids are skipped.
func (s *ProblemService) ListByIDs(ctx context.Context, problemIDs []string) ([]model.Summary, error) {
	problems, err := s.repo.ListByIDs(ctx, problemIDs)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list problems failed")
	}
	return problems, nil
}

func draftToProblem(d Draft) *model.Problem {
	return &model.Problem{
		Title:             d.Title,
		Description:       d.Description,
		Difficulty:        d.Difficulty,
		Tag:               d.Tag,
		VisibleTestCases:  d.VisibleTestCases,
		HiddenTestCases:   d.HiddenTestCases,
		StartCode:         d.StartCode,
		ReferenceSolution: d.ReferenceSolution,
	}
}
