package repository

import (
	"context"
	"errors"
	"time"

	"codequest/internal/common/cache"
	"codequest/internal/common/docstore"
)

const (
	userCollection = "users"

	defaultUserCacheTTL      = 30 * time.Minute
	defaultUserCacheEmptyTTL = time.Minute
	userCacheKeyPrefix       = "user:info:"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID            string    `bson:"_id" json:"id"`
	FirstName     string    `bson:"first_name" json:"first_name"`
	LastName      string    `bson:"last_name" json:"last_name,omitempty"`
	EmailID       string    `bson:"email_id" json:"email_id"`
	Age           int       `bson:"age" json:"age,omitempty"`
	Role          UserRole  `bson:"role" json:"role"`
	PasswordHash  string    `bson:"password_hash" json:"-"`
	ProblemSolved []string  `bson:"problem_solved" json:"problem_solved"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Delete(ctx context.Context, id string) error
	// AddSolved adds problemID to the user's solved-set and reports whether it was new.
	AddSolved(ctx context.Context, userID, problemID string) (bool, error)
}

type userRepository struct {
	coll     docstore.Collection
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewUserRepository(store docstore.Store, cacheClient cache.Cache) UserRepository {
	return NewUserRepositoryWithTTL(store, cacheClient, defaultUserCacheTTL, defaultUserCacheEmptyTTL)
}

func NewUserRepositoryWithTTL(store docstore.Store, cacheClient cache.Cache, ttl, emptyTTL time.Duration) UserRepository {
	if ttl <= 0 {
		ttl = defaultUserCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultUserCacheEmptyTTL
	}
	return &userRepository{
		coll:     store.Collection(userCollection),
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

// EnsureIndexes declares the unique email index.
func EnsureIndexes(ctx context.Context, store docstore.Store) error {
	return store.EnsureIndex(ctx, userCollection, true, "email_id")
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	if user == nil {
		return errors.New("user is nil")
	}
	if user.ProblemSolved == nil {
		user.ProblemSolved = []string{}
	}
	if err := r.coll.Insert(ctx, user); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, ErrUserNotFound
	}
	user, err := cache.GetJSONWithCached(ctx, r.cache, userCacheKey(id), r.ttl, r.emptyTTL,
		func(ctx context.Context) (*User, error) {
			var u User
			if err := r.coll.FindByID(ctx, id, &u); err != nil {
				if docstore.IsNotFound(err) {
					return nil, nil
				}
				return nil, err
			}
			return &u, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByEmail reads the store directly; the cached JSON form drops the password hash.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var users []User
	if err := r.coll.Find(ctx, docstore.Filter{"email_id": email}, docstore.FindOptions{Limit: 1}, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return cache.DeleteCached(ctx, r.cache, userCacheKey(id), func(ctx context.Context) error {
		err := r.coll.DeleteByID(ctx, id)
		if docstore.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	})
}

func (r *userRepository) AddSolved(ctx context.Context, userID, problemID string) (bool, error) {
	var added bool
	err := cache.UpdateCached(ctx, r.cache, userCacheKey(userID), func(ctx context.Context) error {
		var err error
		added, err = r.coll.AddToSet(ctx, userID, "problem_solved", problemID)
		if docstore.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	})
	return added, err
}

func userCacheKey(id string) string {
	return userCacheKeyPrefix + id
}
