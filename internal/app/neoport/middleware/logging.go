/**
 * 日志中间件
 * @description: 为每个请求分配 request_id 并在请求结束后记录访问日志
 */
package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"neoport/internal/pkg/logger"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware 访问日志中间件
type LoggingMiddleware struct {
	skipPaths map[string]struct{}
}

// NewLoggingMiddleware 创建日志中间件，skipPaths 中的路径不记录访问日志
func NewLoggingMiddleware(skipPaths ...string) *LoggingMiddleware {
	m := &LoggingMiddleware{skipPaths: make(map[string]struct{}, len(skipPaths))}
	for _, p := range skipPaths {
		m.skipPaths[p] = struct{}{}
	}
	return m
}

// Handler 返回 gin 中间件
func (m *LoggingMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		if _, skip := m.skipPaths[c.Request.URL.Path]; skip {
			return
		}
		logger.LogAccessRequest(c, start, requestID)
	}
}
