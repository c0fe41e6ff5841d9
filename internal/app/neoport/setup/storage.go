package setup

import (
	"context"
	"fmt"

	"neoport/internal/config"
	"neoport/internal/history"
	"neoport/internal/pkg/logger"
)

// SetupStorage 按配置连接历史存储
func SetupStorage(ctx context.Context, cfg *config.Config) (*StorageModule, error) {
	histCfg := cfg.History
	if histCfg == nil {
		histCfg = config.DefaultConfig().History
	}

	store, err := history.New(ctx, histCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init history store: %w", err)
	}

	logger.LogSystemEvent("storage", "setup", "History store initialized", map[string]interface{}{
		"backend": histCfg.Backend,
	})

	return &StorageModule{History: store, Limit: histCfg.Limit}, nil
}
