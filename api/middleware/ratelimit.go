package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter 按客户端IP限流
// 每个IP一个令牌桶，长时间不活跃的IP会被清理
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters *cache.Cache
}

// NewRateLimiter 创建限流器，rps为每秒补充的令牌数，burst为桶容量
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: cache.New(10*time.Minute, 10*time.Minute),
	}
}

// Allow 判断客户端本次请求是否放行
func (r *RateLimiter) Allow(client string) bool {
	return r.limiterFor(client).Allow()
}

func (r *RateLimiter) limiterFor(client string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, found := r.limiters.Get(client); found {
		limiter := v.(*rate.Limiter)
		r.limiters.SetDefault(client, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(r.limit, r.burst)
	r.limiters.SetDefault(client, limiter)
	return limiter
}

// Middleware 返回gin中间件，超出限制时返回429
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			HandleError(c, NewRateLimitedError("请求过于频繁，请稍后再试"))
			return
		}
		c.Next()
	}
}
