package repository

import (
	"context"
	"errors"
	"time"

	"codequest/internal/common/cache"
	"codequest/internal/common/docstore"
)

const (
	submissionCollection = "submissions"

	defaultSubmissionCacheTTL      = 30 * time.Minute
	defaultSubmissionCacheEmptyTTL = 5 * time.Minute
	submissionCacheKeyPrefix       = "submission:"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusPending              Status = "pending"
	StatusAccepted             Status = "accepted"
	StatusWrongAnswer          Status = "wrong-answer"
	StatusRuntimeError         Status = "runtime-error"
	StatusFailedInfrastructure Status = "failed-infrastructure"
)

// Submission represents a judged submission record.
type Submission struct {
	ID              string    `bson:"_id" json:"id"`
	UserID          string    `bson:"user_id" json:"user_id"`
	ProblemID       string    `bson:"problem_id" json:"problem_id"`
	Code            string    `bson:"code" json:"code"`
	Language        string    `bson:"language" json:"language"`
	Status          Status    `bson:"status" json:"status"`
	TestCasesPassed int       `bson:"test_cases_passed" json:"test_cases_passed"`
	TestCasesTotal  int       `bson:"test_cases_total" json:"test_cases_total"`
	Runtime         float64   `bson:"runtime" json:"runtime"`
	Memory          int64     `bson:"memory" json:"memory"`
	ErrorMessage    string    `bson:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// Result is the single post-judging update of a submission.
type Result struct {
	Status          Status
	TestCasesPassed int
	Runtime         float64
	Memory          int64
	ErrorMessage    string
	UpdatedAt       time.Time
}

// SubmissionRepository defines submission persistence interfaces.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *Submission) error
	UpdateResult(ctx context.Context, submissionID string, result Result) error
	GetByID(ctx context.Context, submissionID string) (*Submission, error)
	// ListByUserProblem returns newest first.
	ListByUserProblem(ctx context.Context, userID, problemID string) ([]Submission, error)
	ListByUser(ctx context.Context, userID string) ([]Submission, error)
	DeleteByProblem(ctx context.Context, problemID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type submissionRepository struct {
	coll     docstore.Collection
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewSubmissionRepository creates a submission repository with defaults.
func NewSubmissionRepository(store docstore.Store, cacheClient cache.Cache) SubmissionRepository {
	return NewSubmissionRepositoryWithTTL(store, cacheClient, defaultSubmissionCacheTTL, defaultSubmissionCacheEmptyTTL)
}

// NewSubmissionRepositoryWithTTL creates a submission repository with custom TTL.
func NewSubmissionRepositoryWithTTL(store docstore.Store, cacheClient cache.Cache, ttl, emptyTTL time.Duration) SubmissionRepository {
	if ttl <= 0 {
		ttl = defaultSubmissionCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultSubmissionCacheEmptyTTL
	}
	return &submissionRepository{
		coll:     store.Collection(submissionCollection),
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

// EnsureIndexes declares the lookup indexes used by the history and purge queries.
func EnsureIndexes(ctx context.Context, store docstore.Store) error {
	if err := store.EnsureIndex(ctx, submissionCollection, false, "user_id", "problem_id"); err != nil {
		return err
	}
	return store.EnsureIndex(ctx, submissionCollection, false, "problem_id")
}

// Create inserts a submission record.
func (r *submissionRepository) Create(ctx context.Context, submission *Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if submission.ID == "" {
		return errors.New("submission id is required")
	}
	if submission.UserID == "" {
		return errors.New("user id is required")
	}
	if submission.ProblemID == "" {
		return errors.New("problem id is required")
	}
	return r.coll.Insert(ctx, submission)
}

// UpdateResult writes the judging outcome.
func (r *submissionRepository) UpdateResult(ctx context.Context, submissionID string, result Result) error {
	if submissionID == "" {
		return errors.New("submission id is required")
	}
	set := map[string]interface{}{
		"status":            result.Status,
		"test_cases_passed": result.TestCasesPassed,
		"runtime":           result.Runtime,
		"memory":            result.Memory,
		"error_message":     result.ErrorMessage,
		"updated_at":        result.UpdatedAt,
	}
	return cache.UpdateCached(ctx, r.cache, submissionCacheKey(submissionID), func(ctx context.Context) error {
		err := r.coll.UpdateByID(ctx, submissionID, set)
		if docstore.IsNotFound(err) {
			return ErrSubmissionNotFound
		}
		return err
	})
}

// GetByID retrieves a submission by id.
func (r *submissionRepository) GetByID(ctx context.Context, submissionID string) (*Submission, error) {
	if submissionID == "" {
		return nil, errors.New("submission id is required")
	}
	submission, err := cache.GetJSONWithCached(ctx, r.cache, submissionCacheKey(submissionID), r.ttl, r.emptyTTL,
		func(ctx context.Context) (*Submission, error) {
			var s Submission
			if err := r.coll.FindByID(ctx, submissionID, &s); err != nil {
				if docstore.IsNotFound(err) {
					return nil, nil
				}
				return nil, err
			}
			return &s, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if submission == nil {
		return nil, ErrSubmissionNotFound
	}
	return submission, nil
}

func (r *submissionRepository) ListByUserProblem(ctx context.Context, userID, problemID string) ([]Submission, error) {
	return r.find(ctx, docstore.Filter{"user_id": userID, "problem_id": problemID})
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID string) ([]Submission, error) {
	return r.find(ctx, docstore.Filter{"user_id": userID})
}

// DeleteByProblem removes every submission for a problem.
func (r *submissionRepository) DeleteByProblem(ctx context.Context, problemID string) (int64, error) {
	if problemID == "" {
		return 0, errors.New("problem id is required")
	}
	return r.deleteWhere(ctx, docstore.Filter{"problem_id": problemID})
}

// DeleteByUser removes every submission made by a user.
func (r *submissionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.New("user id is required")
	}
	return r.deleteWhere(ctx, docstore.Filter{"user_id": userID})
}

// deleteWhere drops the matching documents and their cached copies.
func (r *submissionRepository) deleteWhere(ctx context.Context, filter docstore.Filter) (int64, error) {
	var keys []string
	if r.cache != nil {
		doomed, err := r.find(ctx, filter)
		if err != nil {
			return 0, err
		}
		keys = make([]string, len(doomed))
		for i := range doomed {
			keys[i] = submissionCacheKey(doomed[i].ID)
		}
	}
	n, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	if len(keys) > 0 {
		_ = r.cache.Del(ctx, keys...)
	}
	return n, nil
}

func (r *submissionRepository) find(ctx context.Context, filter docstore.Filter) ([]Submission, error) {
	var out []Submission
	if err := r.coll.Find(ctx, filter, docstore.FindOptions{SortField: "created_at", SortDesc: true}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Submission{}
	}
	return out, nil
}

func submissionCacheKey(submissionID string) string {
	return submissionCacheKeyPrefix + submissionID
}
