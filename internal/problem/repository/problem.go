package repository

import (
	"context"
	"errors"
	"time"

	"codequest/internal/common/cache"
	"codequest/internal/common/docstore"
	"codequest/internal/problem/model"
)

const (
	problemCollection = "problems"

	defaultProblemTTL      = 30 * time.Minute
	defaultProblemEmptyTTL = 5 * time.Minute
	problemKeyPrefix       = "problem:doc:"
)

var (
	ErrProblemNotFound = errors.New("problem not found")
)

type ProblemRepository interface {
	Create(ctx context.Context, problem *model.Problem) error
	// Update replaces the stored document with problem.
	Update(ctx context.Context, problem *model.Problem) error
	Delete(ctx context.Context, problemID string) error
	GetByID(ctx context.Context, problemID string) (*model.Problem, error)
	List(ctx context.Context) ([]model.Summary, error)
	ListByIDs(ctx context.Context, problemIDs []string) ([]model.Summary, error)
}

type problemRepository struct {
	coll     docstore.Collection
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewProblemRepository(store docstore.Store, cacheClient cache.Cache) ProblemRepository {
	return NewProblemRepositoryWithTTL(store, cacheClient, defaultProblemTTL, defaultProblemEmptyTTL)
}

func NewProblemRepositoryWithTTL(store docstore.Store, cacheClient cache.Cache, ttl, emptyTTL time.Duration) ProblemRepository {
	if ttl <= 0 {
		ttl = defaultProblemTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultProblemEmptyTTL
	}
	return &problemRepository{
		coll:     store.Collection(problemCollection),
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

func (r *problemRepository) Create(ctx context.Context, problem *model.Problem) error {
	if problem == nil {
		return errors.New("problem is nil")
	}
	return r.coll.Insert(ctx, problem)
}

func (r *problemRepository) Update(ctx context.Context, problem *model.Problem) error {
	if problem == nil {
		return errors.New("problem is nil")
	}
	set := map[string]interface{}{
		"title":              problem.Title,
		"description":        problem.Description,
		"difficulty":         problem.Difficulty,
		"tag":                problem.Tag,
		"visible_test_cases": problem.VisibleTestCases,
		"hidden_test_cases":  problem.HiddenTestCases,
		"start_code":         problem.StartCode,
		"reference_solution": problem.ReferenceSolution,
		"updated_at":         problem.UpdatedAt,
	}
	return cache.UpdateCached(ctx, r.cache, problemKey(problem.ID), func(ctx context.Context) error {
		return mapNotFound(r.coll.UpdateByID(ctx, problem.ID, set))
	})
}

func (r *problemRepository) Delete(ctx context.Context, problemID string) error {
	return cache.DeleteCached(ctx, r.cache, problemKey(problemID), func(ctx context.Context) error {
		return mapNotFound(r.coll.DeleteByID(ctx, problemID))
	})
}

func (r *problemRepository) GetByID(ctx context.Context, problemID string) (*model.Problem, error) {
	problem, err := cache.GetJSONWithCached(ctx, r.cache, problemKey(problemID), r.ttl, r.emptyTTL,
		func(ctx context.Context) (*model.Problem, error) {
			var p model.Problem
			if err := r.coll.FindByID(ctx, problemID, &p); err != nil {
				if docstore.IsNotFound(err) {
					return nil, nil
				}
				return nil, err
			}
			return &p, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, ErrProblemNotFound
	}
	return problem, nil
}

func (r *problemRepository) List(ctx context.Context) ([]model.Summary, error) {
	return r.find(ctx, docstore.Filter{})
}

func (r *problemRepository) ListByIDs(ctx context.Context, problemIDs []string) ([]model.Summary, error) {
	if len(problemIDs) == 0 {
		return []model.Summary{}, nil
	}
	ids := make(docstore.In, len(problemIDs))
	for i, id := range problemIDs {
		ids[i] = id
	}
	return r.find(ctx, docstore.Filter{"_id": ids})
}

func (r *problemRepository) find(ctx context.Context, filter docstore.Filter) ([]model.Summary, error) {
	var problems []model.Problem
	if err := r.coll.Find(ctx, filter, docstore.FindOptions{SortField: "created_at"}, &problems); err != nil {
		return nil, err
	}
	out := make([]model.Summary, len(problems))
	for i := range problems {
		out[i] = problems[i].Summary()
	}
	return out, nil
}

func problemKey(problemID string) string {
	return problemKeyPrefix + problemID
}

func mapNotFound(err error) error {
	if docstore.IsNotFound(err) {
		return ErrProblemNotFound
	}
	return err
}
