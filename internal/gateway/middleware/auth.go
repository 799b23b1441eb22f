package middleware

import (
	"context"
	"strings"

	"codequest/internal/gateway/service"
	pkgerrors "codequest/pkg/errors"
	"codequest/pkg/utils/contextkey"
	"codequest/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// TokenCookie is the cookie that carries the access token for browser clients.
const TokenCookie = "token"

// AuthMiddleware enforces token validation and, when roles are given, a role check.
func AuthMiddleware(authService *service.AuthService, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "auth service unavailable")
			return
		}

		token := ExtractToken(c)
		info, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		if len(roles) > 0 && !hasRole(info.Role, roles) {
			response.AbortWithErrorCode(c, pkgerrors.Forbidden, "insufficient role")
			return
		}

		c.Set(contextkey.GinUserID, info.ID)
		c.Set(contextkey.GinRole, info.Role)
		c.Set(contextkey.GinToken, token)
		ctx := context.WithValue(c.Request.Context(), contextkey.UserID, info.ID)
		ctx = context.WithValue(ctx, contextkey.Role, info.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole checks a role already set by AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasRole(c.GetString(contextkey.GinRole), roles) {
			response.AbortWithErrorCode(c, pkgerrors.Forbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

// ExtractToken reads a bearer token, falling back to the token cookie.
func ExtractToken(c *gin.Context) string {
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func hasRole(role string, allowed []string) bool {
	for _, item := range allowed {
		if strings.EqualFold(role, item) {
			return true
		}
	}
	return false
}
