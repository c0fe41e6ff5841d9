package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"neoport/internal/config"
	"neoport/internal/pkg/logger"
)

// 空闲超过该时间的客户端限流器会被清理
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 按客户端 IP 的令牌桶限流
type RateLimitMiddleware struct {
	config    *config.RateLimitConfig
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimitMiddleware 创建限流中间件
func NewRateLimitMiddleware(cfg *config.RateLimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		config:    cfg,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Handler 返回 gin 中间件
func (m *RateLimitMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.Enabled || m.config.RequestsPerSecond <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !m.allow(ip) {
			logger.WithFields(map[string]interface{}{
				"type":      logger.AccessLog,
				"client_ip": ip,
				"path":      c.Request.URL.Path,
			}).Warn("Request rate limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

func (m *RateLimitMiddleware) allow(key string) bool {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) > limiterIdleTTL {
		for k, cl := range m.clients {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(m.clients, k)
			}
		}
		m.lastSweep = now
	}

	cl, ok := m.clients[key]
	if !ok {
		burst := m.config.Burst
		if burst <= 0 {
			burst = 1
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), burst)}
		m.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}
