package setup

import (
	"fmt"
	"time"

	"neoport/internal/config"
	"neoport/internal/core/lib/network/dialer"
	"neoport/internal/core/lib/network/qos"
	"neoport/internal/core/portset"
	"neoport/internal/core/scanner/portscan"
	"neoport/internal/pkg/logger"
)

// 代理拨号器的连接超时，单端口超时仍由扫描请求决定
const proxyDialTimeout = 10 * time.Second

// SetupCore 初始化扫描引擎
// 端口表、出口拨号器、进程级令牌池都是进程级单例，CLI 与 HTTP 服务共用
func SetupCore(cfg *config.Config) (*CoreModule, error) {
	scanCfg := cfg.Scan
	if scanCfg == nil {
		scanCfg = config.DefaultConfig().Scan
	}

	registry := portset.Init(scanCfg.ExtraServices)

	if scanCfg.Proxy != "" {
		d, err := dialer.New(scanCfg.Proxy, proxyDialTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy dialer: %w", err)
		}
		dialer.SetGlobalDialer(d)
	}

	limiter := qos.Setup(scanCfg.MaxInflight, scanCfg.MinInflight, scanCfg.Adaptive)

	logger.LogSystemEvent("core", "setup", "Scan engine initialized", map[string]interface{}{
		"max_inflight":   scanCfg.MaxInflight,
		"adaptive":       scanCfg.Adaptive,
		"proxy":          scanCfg.Proxy != "",
		"extra_services": len(scanCfg.ExtraServices),
	})

	return &CoreModule{
		Registry: registry,
		Limiter:  limiter,
		Scanner:  portscan.NewScanner(portscan.WithRegistry(registry), portscan.WithLimiter(limiter)),
	}, nil
}
