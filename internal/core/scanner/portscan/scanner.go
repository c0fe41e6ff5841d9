/**
 * 端口扫描器
 * @description: 端口解析 -> 并发探测 -> 结果汇总。不关心请求来源 (CLI/HTTP) 和结果去向 (控制台/历史库)。
 */
package portscan

import (
	"context"
	"strings"

	"neoport/internal/core/lib/network/dialer"
	"neoport/internal/core/lib/network/qos"
	"neoport/internal/core/model"
	"neoport/internal/core/portset"
	"neoport/internal/pkg/logger"
)

// Scanner 端口扫描器
type Scanner struct {
	registry  *portset.Registry
	scheduler *Scheduler
}

// Option 扫描器选项
type Option func(*scannerOptions)

type scannerOptions struct {
	registry *portset.Registry
	prober   Prober
	dialer   dialer.Dialer
	limiter  qos.Limiter
}

// WithRegistry 指定端口表，默认使用进程级端口表
func WithRegistry(r *portset.Registry) Option {
	return func(o *scannerOptions) { o.registry = r }
}

// WithProber 替换探测器 (测试)
func WithProber(p Prober) Option {
	return func(o *scannerOptions) { o.prober = p }
}

// WithDialer 指定拨号器，默认使用全局拨号器
func WithDialer(d dialer.Dialer) Option {
	return func(o *scannerOptions) { o.dialer = d }
}

// WithLimiter 指定令牌池，默认使用进程级令牌池
func WithLimiter(l qos.Limiter) Option {
	return func(o *scannerOptions) { o.limiter = l }
}

func NewScanner(opts ...Option) *Scanner {
	o := &scannerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = portset.Default()
	}
	if o.prober == nil {
		o.prober = NewTCPProber(o.dialer)
	}
	return &Scanner{
		registry:  o.registry,
		scheduler: NewScheduler(o.prober, o.limiter),
	}
}

// Registry 扫描器使用的端口表
func (s *Scanner) Registry() *portset.Registry {
	return s.registry
}

// Scan 执行一次扫描
// 参数错误返回 *model.ValidationError (不发起任何连接)；汇总失败返回 *model.AggregateFailure；
// 单端口的超时和错误只体现为 closed
func (s *Scanner) Scan(ctx context.Context, req *model.ScanRequest) (*model.ScanResponse, error) {
	plan, err := s.registry.Resolve(req)
	if err != nil {
		entry := logger.ScanLogEntry{Status: "rejected", ExtraFields: map[string]interface{}{"reason": err.Error()}}
		if req != nil {
			entry.Target, entry.ScanType = req.Target, string(req.ScanType)
		}
		logger.LogScanEvent(entry)
		return nil, err
	}

	target := strings.TrimSpace(req.Target)
	logger.LogScanEvent(logger.ScanLogEntry{
		Target:     target,
		ScanType:   string(plan.ScanType),
		Status:     "started",
		TotalPorts: len(plan.Ports),
		ExtraFields: map[string]interface{}{
			"workers":      plan.Workers(),
			"timeout_ms":   plan.Timeout.Milliseconds(),
			"service_mode": plan.ServiceMode,
		},
	})

	results, elapsed := s.scheduler.Run(ctx, target, plan)

	resp, err := Aggregate(target, plan, results, elapsed)
	if err != nil {
		logger.LogScanEvent(logger.ScanLogEntry{
			Target:      target,
			ScanType:    string(plan.ScanType),
			Status:      "failed",
			TotalPorts:  len(plan.Ports),
			Duration:    elapsed.Milliseconds(),
			ExtraFields: map[string]interface{}{"error": err.Error()},
		})
		return nil, err
	}

	logger.LogScanEvent(logger.ScanLogEntry{
		Target:      target,
		ScanType:    string(plan.ScanType),
		Status:      "completed",
		TotalPorts:  resp.TotalPorts,
		OpenPorts:   resp.OpenPorts,
		ClosedPorts: resp.ClosedPorts,
		Duration:    elapsed.Milliseconds(),
	})
	return resp, nil
}
