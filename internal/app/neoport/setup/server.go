package setup

import (
	"net/http"

	"neoport/internal/app/neoport/router"
	"neoport/internal/config"
)

// SetupServer 初始化路由与 HTTP 服务器
func SetupServer(cfg *config.Config, core *CoreModule, storage *StorageModule) *ServerModule {
	r := router.NewRouter(cfg, router.Dependencies{
		Scanner:      core.Scanner,
		History:      storage.History,
		HistoryLimit: storage.Limit,
	})

	httpServer := &http.Server{
		Addr:           cfg.Server.Address(),
		Handler:        r.GetEngine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return &ServerModule{
		Router:     r,
		HTTPServer: httpServer,
	}
}
