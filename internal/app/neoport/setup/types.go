package setup

import (
	"net/http"

	"neoport/internal/app/neoport/router"
	"neoport/internal/core/lib/network/qos"
	"neoport/internal/core/portset"
	"neoport/internal/core/scanner/portscan"
	"neoport/internal/history"
)

// CoreModule 扫描引擎模块
type CoreModule struct {
	Registry *portset.Registry
	Limiter  qos.Limiter
	Scanner  *portscan.Scanner
}

// StorageModule 历史存储模块
type StorageModule struct {
	History history.Store
	Limit   int
}

// ServerModule 服务器模块
type ServerModule struct {
	Router     *router.Router
	HTTPServer *http.Server
}
