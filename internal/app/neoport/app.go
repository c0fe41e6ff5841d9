/**
 * neoport 应用核心逻辑
 * @description: 负责按配置初始化扫描引擎、历史存储与 HTTP 服务，并管理其生命周期
 */

package neoport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"neoport/internal/app/neoport/router"
	"neoport/internal/app/neoport/setup"
	"neoport/internal/config"
	"neoport/internal/history"
	"neoport/internal/pkg/logger"
)

// App 应用程序结构体
type App struct {
	config     *config.Config
	configFile string
	router     *router.Router
	httpServer *http.Server
	core       *setup.CoreModule
	store      history.Store
	watcher    *config.ConfigWatcher
}

// NewApp 创建应用实例，调用前日志应已初始化
// configFile 为实际使用的配置文件，为空时不监听配置变化
func NewApp(ctx context.Context, cfg *config.Config, configFile string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger.Info("neoport application initializing...")

	coreModule, err := setup.SetupCore(cfg)
	if err != nil {
		return nil, err
	}
	storageModule, err := setup.SetupStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	serverModule := setup.SetupServer(cfg, coreModule, storageModule)

	return &App{
		config:     cfg,
		configFile: configFile,
		router:     serverModule.Router,
		httpServer: serverModule.HTTPServer,
		core:       coreModule,
		store:      storageModule.History,
	}, nil
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// GetHTTPServer 获取HTTP服务器实例
func (a *App) GetHTTPServer() *http.Server {
	return a.httpServer
}

// Start 启动 HTTP 服务 (非阻塞)，监听失败通过返回的 channel 通知
func (a *App) Start() <-chan error {
	errCh := make(chan error, 1)

	a.startWatcher()

	go func() {
		logger.Infof("neoport HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start HTTP server: ", err)
			errCh <- err
		}
		close(errCh)
	}()

	return errCh
}

// Stop 停止 HTTP 服务并释放存储连接
// 进行中的扫描会在 Shutdown 的等待期内继续完成
func (a *App) Stop(ctx context.Context) error {
	logger.Info("Stopping neoport server...")

	var errs []error
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop config watcher: %w", err))
		}
	}
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop HTTP server: %w", err))
	}
	if err := a.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close history store: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Errorf("neoport stopped with errors: %v", err)
		return err
	}
	logger.Info("neoport stopped successfully")
	return nil
}

// startWatcher 监听配置文件，目前只热更新日志配置
// 扫描引擎相关配置 (端口表、令牌池、代理) 需要重启生效
func (a *App) startWatcher() {
	if a.configFile == "" {
		return
	}
	w, err := config.NewConfigWatcher(a.configFile, a.config)
	if err != nil {
		logger.Warnf("Config watcher disabled: %v", err)
		return
	}
	w.AddCallback(func(oldCfg, newCfg *config.Config) error {
		if logger.LoggerInstance == nil || newCfg.Log == nil {
			return nil
		}
		if err := logger.LoggerInstance.UpdateConfig(newCfg.Log); err != nil {
			return err
		}
		logger.LogSystemEvent("config", "reload", "Log config reloaded", map[string]interface{}{
			"level": newCfg.Log.Level,
		})
		return nil
	})
	// 重载失败时保留旧配置，只记录告警
	w.OnError(func(err error) {
		logger.Warn("Config reload failed, keeping previous config: ", err)
	})
	if err := w.Start(); err != nil {
		w.Stop()
		logger.Warnf("Config watcher disabled: %v", err)
		return
	}
	a.watcher = w
	logger.Debug("Watching config file ", a.configFile)
}
