package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	gatewayService "codequest/internal/gateway/service"
	problemModel "codequest/internal/problem/model"
	"codequest/internal/user/repository"
	pkgerrors "codequest/pkg/errors"
	"codequest/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs and revokes access tokens.
type TokenIssuer interface {
	Issue(user gatewayService.UserInfo) (string, time.Time, error)
	Revoke(ctx context.Context, raw string) error
}

// ProblemLister resolves solved problem ids into summaries.
type ProblemLister interface {
	ListByIDs(ctx context.Context, problemIDs []string) ([]problemModel.Summary, error)
}

// SubmissionPurger removes every submission made by a user.
type SubmissionPurger interface {
	PurgeUser(ctx context.Context, userID string) error
}

// Config wires a UserService.
type Config struct {
	Users       repository.UserRepository
	Tokens      TokenIssuer
	Problems    ProblemLister
	Submissions SubmissionPurger
	BcryptCost  int
}

// UserService handles registration, login and the profile of the current user.
type UserService struct {
	users       repository.UserRepository
	tokens      TokenIssuer
	problems    ProblemLister
	submissions SubmissionPurger
	bcryptCost  int
	now         func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(cfg Config) (*UserService, error) {
	if cfg.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		users:       cfg.Users,
		tokens:      cfg.Tokens,
		problems:    cfg.Problems,
		submissions: cfg.Submissions,
		bcryptCost:  cfg.BcryptCost,
		now:         time.Now,
	}, nil
}

// RegisterInput represents input for user registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	EmailID   string
	Age       int
	Password  string
}

// LoginInput represents input for user login.
type LoginInput struct {
	EmailID  string
	Password string
}

// UserInfo is the public view of a user.
type UserInfo struct {
	ID        string              `json:"_id"`
	FirstName string              `json:"firstName"`
	EmailID   string              `json:"emailId"`
	Role      repository.UserRole `json:"role"`
}

// AuthResult represents the result of auth operations.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      UserInfo
}

// Register creates a regular user and signs them in.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	return s.register(ctx, input, repository.UserRoleUser)
}

// RegisterAdmin creates an administrator. Callers must already be admins.
func (s *UserService) RegisterAdmin(ctx context.Context, input RegisterInput) (AuthResult, error) {
	return s.register(ctx, input, repository.UserRoleAdmin)
}

func (s *UserService) register(ctx context.Context, input RegisterInput, role repository.UserRole) (AuthResult, error) {
	input.EmailID = normalizeEmail(input.EmailID)
	if err := validateFirstName(input.FirstName); err != nil {
		return AuthResult{}, err
	}
	if err := validateEmail(input.EmailID); err != nil {
		return AuthResult{}, err
	}
	if err := validateAge(input.Age); err != nil {
		return AuthResult{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return AuthResult{}, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return AuthResult{}, pkgerrors.Wrap(fmt.Errorf("hash password failed: %w", err), pkgerrors.InternalServerError)
	}

	now := s.now().UTC()
	user := &repository.User{
		ID:            uuid.NewString(),
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		EmailID:       input.EmailID,
		Age:           input.Age,
		Role:          role,
		PasswordHash:  string(passwordHash),
		ProblemSolved: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrEmailExists) {
			return AuthResult{}, pkgerrors.New(pkgerrors.EmailAlreadyExists)
		}
		return AuthResult{}, pkgerrors.Wrap(fmt.Errorf("create user failed: %w", err), pkgerrors.DatabaseError)
	}
	logger.Info(ctx, "user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return s.issue(user)
}

// Login verifies credentials and signs the user in.
func (s *UserService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.EmailID)
	if email == "" || input.Password == "" {
		return AuthResult{}, pkgerrors.ValidationError("credentials", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, pkgerrors.New(pkgerrors.InvalidCredentials)
		}
		return AuthResult{}, pkgerrors.Wrap(fmt.Errorf("get user failed: %w", err), pkgerrors.DatabaseError)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return AuthResult{}, pkgerrors.New(pkgerrors.InvalidCredentials)
	}
	return s.issue(user)
}

// Logout revokes the presented token.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, token)
}

// Profile returns the current user.
func (s *UserService) Profile(ctx context.Context, userID string) (*repository.User, error) {
	return s.getUserByID(ctx, userID)
}

// DeleteProfile removes the user, their submissions and the token used for the call.
func (s *UserService) DeleteProfile(ctx context.Context, userID, token string) error {
	if _, err := s.getUserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			return pkgerrors.New(pkgerrors.UserNotFound)
		}
		return pkgerrors.Wrap(fmt.Errorf("delete user failed: %w", err), pkgerrors.UserDeleteFailed)
	}
	if s.submissions != nil {
		if err := s.submissions.PurgeUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(fmt.Errorf("delete submissions failed: %w", err), pkgerrors.UserDeleteFailed)
		}
	}
	if err := s.Logout(ctx, token); err != nil {
		logger.Warn(ctx, "revoke token after profile delete failed", zap.String("user_id", userID), zap.Error(err))
	}
	logger.Info(ctx, "user deleted", zap.String("user_id", userID))
	return nil
}

// SolvedProblems returns the summaries of the problems in the user's solved-set.
// Deleted problems are skipped.
func (s *UserService) SolvedProblems(ctx context.Context, userID string) ([]problemModel.Summary, error) {
	user, err := s.getUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.problems == nil {
		return nil, pkgerrors.New(pkgerrors.ServiceUnavailable)
	}
	summaries, err := s.problems.ListByIDs(ctx, user.ProblemSolved)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// UserExists reports whether userID still has an account.
func (s *UserService) UserExists(ctx context.Context, userID string) (bool, error) {
	_, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *UserService) issue(user *repository.User) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(gatewayService.UserInfo{
		ID:    user.ID,
		Email: user.EmailID,
		Role:  string(user.Role),
	})
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User: UserInfo{
			ID:        user.ID,
			FirstName: user.FirstName,
			EmailID:   user.EmailID,
			Role:      user.Role,
		},
	}, nil
}

func (s *UserService) getUserByID(ctx context.Context, userID string) (*repository.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			return nil, pkgerrors.New(pkgerrors.UserNotFound)
		}
		return nil, pkgerrors.Wrap(fmt.Errorf("get user failed: %w", err), pkgerrors.DatabaseError)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
