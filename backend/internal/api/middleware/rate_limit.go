package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qatrack/backend/pkg/response"
)

// RateLimiter 滑动窗口计数，由 *redis.Client 实现
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按调用者限流：已认证请求按 user_id 计数，否则按客户端 IP
// limiter 为 nil 或计数失败时降级放行（与 JWTAuth 策略一致）
func RateLimit(limiter RateLimiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), rateLimitKey(c), limit, window)
		if err != nil {
			logger.Warn("限流计数失败，降级放行", zap.String("path", c.FullPath()), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	if uid := c.GetString("user_id"); uid != "" {
		return fmt.Sprintf("qa:ratelimit:%s:user:%s", c.FullPath(), uid)
	}
	return fmt.Sprintf("qa:ratelimit:%s:ip:%s", c.FullPath(), c.ClientIP())
}
