/**
 * 路由注册
 * @description: 统一管理中间件与全部路由，路径与原 Web 前端约定保持一致
 */
package router

import (
	"github.com/gin-gonic/gin"

	"neoport/internal/app/neoport/middleware"
	"neoport/internal/config"
	historyHandler "neoport/internal/handler/history"
	portHandler "neoport/internal/handler/port"
	"neoport/internal/history"
)

// Dependencies 路由依赖
type Dependencies struct {
	Scanner      portHandler.PortScanner
	History      history.Store
	HistoryLimit int
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	config *config.Config

	loggingMiddleware   *middleware.LoggingMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	rateLimitMiddleware *middleware.RateLimitMiddleware

	portHandler    portHandler.PortHandler
	historyHandler historyHandler.HistoryHandler
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(cfg *config.Config, deps Dependencies) *Router {
	if cfg.Server != nil && cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := &Router{
		engine:         gin.New(),
		config:         cfg,
		portHandler:    portHandler.NewPortHandler(deps.Scanner),
		historyHandler: historyHandler.NewHistoryHandler(deps.History, deps.HistoryLimit),
	}
	r.initMiddleware()
	r.registerRoutes()
	return r
}

// GetEngine 获取 gin 引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) initMiddleware() {
	r.loggingMiddleware = middleware.NewLoggingMiddleware("/health", "/ping")

	if mw := r.config.Middleware; mw != nil {
		if mw.CORS != nil && mw.CORS.Enabled {
			r.corsMiddleware = middleware.NewCORSMiddleware(mw.CORS)
		}
		if mw.RateLimit != nil && mw.RateLimit.Enabled {
			r.rateLimitMiddleware = middleware.NewRateLimitMiddleware(mw.RateLimit)
		}
	}
}

func (r *Router) registerRoutes() {
	r.registerGlobalMiddleware()
	r.registerHealthRoutes()
	r.registerPortRoutes()
	r.registerHistoryRoutes()
}

// registerGlobalMiddleware 注册全局中间件
// 顺序: 恢复 -> 日志 -> CORS -> 限流，被限流的请求也有访问日志
func (r *Router) registerGlobalMiddleware() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(r.loggingMiddleware.Handler())

	if r.corsMiddleware != nil {
		r.engine.Use(r.corsMiddleware.Handler())
	}
	if r.rateLimitMiddleware != nil {
		r.engine.Use(r.rateLimitMiddleware.Handler())
	}
}
