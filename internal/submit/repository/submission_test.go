package repository

import (
	"context"
	"testing"
	"time"

	"codequest/internal/common/cache"
	"codequest/internal/common/docstore"
	"codequest/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRepo(t *testing.T) (SubmissionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	testutil.MustNoError(t, err)
	t.Cleanup(func() { _ = redisCache.Close() })
	store := docstore.NewMemoryStore()
	testutil.MustNoError(t, EnsureIndexes(context.Background(), store))
	return NewSubmissionRepository(store, redisCache), mr
}

func newSubmission(id, userID, problemID string, created time.Time) *Submission {
	return &Submission{
		ID:             id,
		UserID:         userID,
		ProblemID:      problemID,
		Code:           "int main(){}",
		Language:       "c++",
		Status:         StatusPending,
		TestCasesTotal: 3,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestUpdateResultRefreshesCachedSubmission(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	testutil.MustNoError(t, repo.Create(ctx, newSubmission("s1", "u1", "p1", time.Now())))

	got, err := repo.GetByID(ctx, "s1")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, got.Status, StatusPending)

	testutil.MustNoError(t, repo.UpdateResult(ctx, "s1", Result{Status: StatusAccepted, TestCasesPassed: 3, UpdatedAt: time.Now()}))
	got, err = repo.GetByID(ctx, "s1")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, got.Status, StatusAccepted)
	testutil.AssertEqual(t, got.TestCasesPassed, 3)

	testutil.AssertEqual(t, repo.UpdateResult(ctx, "missing", Result{Status: StatusAccepted}), ErrSubmissionNotFound)
}

func TestDeleteByProblemDropsCachedSubmissions(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	testutil.MustNoError(t, repo.Create(ctx, newSubmission("s1", "u1", "p1", now)))
	testutil.MustNoError(t, repo.Create(ctx, newSubmission("s2", "u2", "p1", now)))
	testutil.MustNoError(t, repo.Create(ctx, newSubmission("s3", "u1", "p2", now)))
	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := repo.GetByID(ctx, id)
		testutil.MustNoError(t, err)
	}
	testutil.AssertTrue(t, mr.Exists(submissionCacheKey("s1")), "s1 should be cached")

	n, err := repo.DeleteByProblem(ctx, "p1")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, n, int64(2))
	testutil.AssertFalse(t, mr.Exists(submissionCacheKey("s1")), "s1 cache entry should be gone")
	testutil.AssertFalse(t, mr.Exists(submissionCacheKey("s2")), "s2 cache entry should be gone")

	_, err = repo.GetByID(ctx, "s1")
	testutil.AssertEqual(t, err, ErrSubmissionNotFound)
	kept, err := repo.GetByID(ctx, "s3")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, kept.ProblemID, "p2")
}

func TestDeleteByUserDropsCachedSubmissions(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	base := time.Now()
	testutil.MustNoError(t, repo.Create(ctx, newSubmission("s1", "u1", "p1", base)))
	testutil.MustNoError(t, repo.Create(ctx, newSubmission("s2", "u1", "p1", base.Add(time.Second))))
	_, err := repo.GetByID(ctx, "s2")
	testutil.MustNoError(t, err)

	list, err := repo.ListByUserProblem(ctx, "u1", "p1")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, list[0].ID, "s2")

	n, err := repo.DeleteByUser(ctx, "u1")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, n, int64(2))
	_, err = repo.GetByID(ctx, "s2")
	testutil.AssertEqual(t, err, ErrSubmissionNotFound)

	list, err = repo.ListByUser(ctx, "u1")
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, len(list), 0)
}
