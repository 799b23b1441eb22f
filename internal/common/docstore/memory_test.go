package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"codequest/internal/testutil"
)

type testDoc struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	Email     string    `bson:"email"`
	Score     int       `bson:"score"`
	Tags      []string  `bson:"tags"`
	CreatedAt time.Time `bson:"created_at"`
}

func TestMemoryInsertFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	coll := store.Collection("docs")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, owner := range []string{"u1", "u2", "u1"} {
		doc := testDoc{ID: string(rune('a' + i)), Owner: owner, Score: i, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		testutil.MustNoError(t, coll.Insert(ctx, doc))
	}

	var got testDoc
	testutil.MustNoError(t, coll.FindByID(ctx, "b", &got))
	testutil.AssertEqual(t, got.Owner, "u2")
	testutil.AssertTrue(t, got.CreatedAt.Equal(base.Add(time.Minute)), "time should round trip")

	var owned []testDoc
	testutil.MustNoError(t, coll.Find(ctx, Filter{"owner": "u1"}, FindOptions{SortField: "created_at", SortDesc: true}, &owned))
	testutil.AssertEqual(t, len(owned), 2)
	testutil.AssertEqual(t, owned[0].ID, "c")
	testutil.AssertEqual(t, owned[1].ID, "a")

	var some []testDoc
	testutil.MustNoError(t, coll.Find(ctx, Filter{"_id": In{"a", "b", "zz"}}, FindOptions{}, &some))
	testutil.AssertEqual(t, len(some), 2)

	var none []testDoc
	testutil.MustNoError(t, coll.Find(ctx, Filter{"owner": "nobody"}, FindOptions{}, &none))
	testutil.AssertEqual(t, len(none), 0)

	err := coll.FindByID(ctx, "missing", &got)
	testutil.AssertTrue(t, IsNotFound(err), "missing id should be ErrNotFound")
}

func TestMemoryUniqueIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	testutil.MustNoError(t, store.EnsureIndex(ctx, "users", true, "email"))
	coll := store.Collection("users")

	testutil.MustNoError(t, coll.Insert(ctx, testDoc{ID: "1", Email: "a@b.c"}))
	err := coll.Insert(ctx, testDoc{ID: "2", Email: "a@b.c"})
	testutil.AssertTrue(t, errors.Is(err, ErrDuplicate), "duplicate email should be rejected")
	err = coll.Insert(ctx, testDoc{ID: "1", Email: "other@b.c"})
	testutil.AssertTrue(t, errors.Is(err, ErrDuplicate), "duplicate id should be rejected")
}

func TestMemoryUpdateDelete(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryStore().Collection("docs")
	testutil.MustNoError(t, coll.Insert(ctx, testDoc{ID: "1", Owner: "u1", Score: 1}))
	testutil.MustNoError(t, coll.Insert(ctx, testDoc{ID: "2", Owner: "u1"}))
	testutil.MustNoError(t, coll.Insert(ctx, testDoc{ID: "3", Owner: "u2"}))

	testutil.MustNoError(t, coll.UpdateByID(ctx, "1", map[string]interface{}{"score": 42}))
	var got testDoc
	testutil.MustNoError(t, coll.FindByID(ctx, "1", &got))
	testutil.AssertEqual(t, got.Score, 42)
	testutil.AssertTrue(t, IsNotFound(coll.UpdateByID(ctx, "9", map[string]interface{}{"score": 1})), "update of missing id")

	n, err := coll.DeleteMany(ctx, Filter{"owner": "u1"})
	testutil.MustNoError(t, err)
	testutil.AssertEqual(t, n, int64(2))
	testutil.MustNoError(t, coll.DeleteByID(ctx, "3"))
	testutil.AssertTrue(t, IsNotFound(coll.DeleteByID(ctx, "3")), "second delete should miss")
}

func TestMemoryAddToSetConcurrent(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryStore().Collection("users")
	testutil.MustNoError(t, coll.Insert(ctx, testDoc{ID: "u1"}))

	var wg sync.WaitGroup
	added := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := coll.AddToSet(ctx, "u1", "tags", "p1")
			if err != nil {
				t.Error(err)
			}
			added <- ok
		}()
	}
	wg.Wait()
	close(added)

	count := 0
	for ok := range added {
		if ok {
			count++
		}
	}
	testutil.AssertEqual(t, count, 1)

	var got testDoc
	testutil.MustNoError(t, coll.FindByID(ctx, "u1", &got))
	testutil.AssertEqual(t, got.Tags, []string{"p1"})

	_, err := coll.AddToSet(ctx, "missing", "tags", "p1")
	testutil.AssertTrue(t, IsNotFound(err), "add to missing doc should be ErrNotFound")
}

func TestMemoryReadsDuringWrites(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryStore().Collection("users")
	testutil.MustNoError(t, coll.Insert(ctx, testDoc{ID: "u1", Owner: "u1"}))

	const rounds = 200
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			if _, err := coll.AddToSet(ctx, "u1", "tags", fmt.Sprintf("p%d", i)); err != nil {
				t.Error(err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			if err := coll.UpdateByID(ctx, "u1", map[string]interface{}{"score": i}); err != nil {
				t.Error(err)
			}
		}(i)
		go func() {
			defer wg.Done()
			var got testDoc
			if err := coll.FindByID(ctx, "u1", &got); err != nil {
				t.Error(err)
			}
			var all []testDoc
			if err := coll.Find(ctx, Filter{"owner": "u1"}, FindOptions{}, &all); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	var got testDoc
	testutil.MustNoError(t, coll.FindByID(ctx, "u1", &got))
	testutil.AssertEqual(t, len(got.Tags), rounds)
}
