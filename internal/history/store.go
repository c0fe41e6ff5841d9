/**
 * 端口扫描历史
 * @description: 扫描结果由 HTTP 层在扫描结束后按用户保存，扫描引擎本身不依赖此包
 */
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"neoport/internal/config"
	"neoport/internal/core/model"
)

// DefaultLimit 每个用户返回的最大历史条数
const DefaultLimit = 20

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("history record not found")

// Record 一次扫描的历史记录
type Record struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Target          string              `json:"target"`
	ScanType        model.ScanType      `json:"scanType"`
	TotalPorts      int                 `json:"totalPorts"`
	OpenPorts       int                 `json:"openPorts"`
	ClosedPorts     int                 `json:"closedPorts"`
	ScanTimeSeconds string              `json:"scanTimeSeconds"`
	Results         []model.ProbeResult `json:"results"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// Validate 保存前校验
func (r *Record) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return model.NewValidationError("userId", "userId is required")
	}
	if strings.TrimSpace(r.Target) == "" {
		return model.NewValidationError("target", "target is required")
	}
	return nil
}

// FromResponse 由扫描响应构建历史记录
func FromResponse(userID string, resp *model.ScanResponse) *Record {
	return &Record{
		UserID:          userID,
		Target:          resp.Target,
		ScanType:        resp.ScanType,
		TotalPorts:      resp.TotalPorts,
		OpenPorts:       resp.OpenPorts,
		ClosedPorts:     resp.ClosedPorts,
		ScanTimeSeconds: resp.ScanTimeSeconds,
		Results:         resp.Results,
	}
}

// Store 历史存储
type Store interface {
	// Save 保存记录并返回 ID，CreatedAt 为空时填充当前时间
	Save(ctx context.Context, rec *Record) (string, error)
	// ListByUser 按创建时间倒序返回用户的最近 limit 条记录
	ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error)
	// Delete 删除记录，不存在时返回 ErrNotFound
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// New 按配置创建存储
func New(ctx context.Context, cfg *config.HistoryConfig) (Store, error) {
	if cfg == nil {
		return NewMemoryStore(), nil
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "mongo":
		return NewMongoStore(ctx, cfg.Mongo)
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.Backend)
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func prepare(rec *Record) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Results == nil {
		rec.Results = []model.ProbeResult{}
	}
}
