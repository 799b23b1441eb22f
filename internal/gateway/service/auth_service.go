package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"codequest/internal/gateway/repository"
	pkgerrors "codequest/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultTokenTTL = time.Hour
	defaultIssuer   = "codequest"
)

// UserInfo is the identity carried by a valid access token.
type UserInfo struct {
	ID    string
	Email string
	Role  string
}

// UserChecker reports whether a user still exists. Tokens of deleted users are rejected.
type UserChecker interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// AuthConfig configures token signing.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

// AuthService issues, verifies and revokes HS256 access tokens.
type AuthService struct {
	jwtSecret []byte
	jwtIssuer string
	tokenTTL  time.Duration
	blacklist *repository.TokenBlacklistRepository
	users     UserChecker
	now       func() time.Time
}

func NewAuthService(cfg AuthConfig, blacklist *repository.TokenBlacklistRepository) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = defaultIssuer
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &AuthService{
		jwtSecret: []byte(cfg.JWTSecret),
		jwtIssuer: cfg.JWTIssuer,
		tokenTTL:  cfg.TokenTTL,
		blacklist: blacklist,
		now:       time.Now,
	}, nil
}

// SetUserChecker installs the existence check. It is set after construction
// because the user service itself depends on AuthService.
func (s *AuthService) SetUserChecker(users UserChecker) {
	s.users = users
}

// TokenTTL returns the lifetime of issued tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

type tokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a new access token.
func (s *AuthService) Issue(user UserInfo) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := tokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, pkgerrors.Wrapf(err, pkgerrors.TokenGenerationFailed, "sign token failed")
	}
	return signed, expiresAt, nil
}

// Authenticate verifies the signature, expiry, revocation and the user's existence.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (UserInfo, error) {
	if raw == "" {
		return UserInfo{}, pkgerrors.New(pkgerrors.Unauthorized).WithMessage("please log in to continue")
	}
	claims, err := s.parseToken(raw)
	if err != nil {
		return UserInfo{}, err
	}
	if s.blacklist != nil {
		blacklisted, err := s.blacklist.IsBlacklisted(ctx, hashToken(raw))
		if err != nil {
			return UserInfo{}, pkgerrors.Wrap(err, pkgerrors.ServiceUnavailable)
		}
		if blacklisted {
			return UserInfo{}, pkgerrors.New(pkgerrors.TokenRevoked)
		}
	}
	if s.users != nil {
		exists, err := s.users.UserExists(ctx, claims.UserID)
		if err != nil {
			return UserInfo{}, pkgerrors.Wrap(err, pkgerrors.ServiceUnavailable)
		}
		if !exists {
			return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid).WithMessage("user account not found")
		}
	}
	return UserInfo{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// Revoke blacklists raw until it expires. Expired tokens need no revocation.
func (s *AuthService) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	claims, err := s.parseToken(raw)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.TokenExpired) {
			return nil
		}
		return err
	}
	if s.blacklist == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("token revocation is unavailable")
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.blacklist.Revoke(ctx, hashToken(raw), ttl); err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.ServiceUnavailable, "revoke token failed")
	}
	return nil
}

func (s *AuthService) parseToken(raw string) (*tokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.jwtIssuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
