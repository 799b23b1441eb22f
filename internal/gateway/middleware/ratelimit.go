package middleware

import (
	"fmt"
	"time"

	"codequest/internal/gateway/service"
	"codequest/pkg/utils/contextkey"
	"codequest/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RateLimitPolicy caps requests per window. A zero max disables that dimension.
type RateLimitPolicy struct {
	Window  time.Duration `yaml:"window"`
	UserMax int           `yaml:"userMax"`
	IPMax   int           `yaml:"ipMax"`
}

// RateLimitMiddleware enforces per-route limits by client IP and, after auth, by user.
func RateLimitMiddleware(rateService *service.RateLimitService, routeKey string, policy RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rateService == nil {
			c.Next()
			return
		}
		if policy.IPMax > 0 {
			key := fmt.Sprintf("rate:ip:%s:%s", c.ClientIP(), routeKey)
			if err := rateService.Allow(c.Request.Context(), key, policy.IPMax, policy.Window); err != nil {
				response.AbortWithError(c, err)
				return
			}
		}
		if policy.UserMax > 0 {
			if userID := c.GetString(contextkey.GinUserID); userID != "" {
				key := fmt.Sprintf("rate:user:%s:%s", userID, routeKey)
				if err := rateService.Allow(c.Request.Context(), key, policy.UserMax, policy.Window); err != nil {
					response.AbortWithError(c, err)
					return
				}
			}
		}
		c.Next()
	}
}
