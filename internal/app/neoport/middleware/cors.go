package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"neoport/internal/config"
)

// CORSMiddleware 跨域中间件
type CORSMiddleware struct {
	config   *config.CORSConfig
	allowAll bool
	origins  map[string]struct{}
	methods  string
	headers  string
	maxAge   string
}

// NewCORSMiddleware 创建跨域中间件
func NewCORSMiddleware(cfg *config.CORSConfig) *CORSMiddleware {
	m := &CORSMiddleware{
		config:  cfg,
		origins: make(map[string]struct{}),
		methods: "GET, POST, PUT, DELETE, OPTIONS",
		headers: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			m.allowAll = true
		}
		m.origins[o] = struct{}{}
	}
	if len(cfg.AllowMethods) > 0 {
		m.methods = strings.Join(cfg.AllowMethods, ", ")
	}
	if len(cfg.AllowHeaders) > 0 {
		m.headers = strings.Join(cfg.AllowHeaders, ", ")
	}
	if cfg.MaxAge > 0 {
		m.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return m
}

// Handler 返回 gin 中间件
func (m *CORSMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !m.config.Enabled {
			c.Next()
			return
		}

		if !m.allowed(origin) {
			// 不在白名单的预检请求直接拒绝，普通请求不附加跨域头
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		// 携带凭据时不能返回 *
		if m.allowAll && !m.config.AllowCredentials {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		if m.config.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Methods", m.methods)
		c.Header("Access-Control-Allow-Headers", m.headers)
		if m.maxAge != "" {
			c.Header("Access-Control-Max-Age", m.maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (m *CORSMiddleware) allowed(origin string) bool {
	if m.allowAll {
		return true
	}
	_, ok := m.origins[origin]
	return ok
}
