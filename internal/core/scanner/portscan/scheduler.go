package portscan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"neoport/internal/core/lib/network/qos"
	"neoport/internal/core/model"
	"neoport/internal/core/portset"
	"neoport/internal/pkg/logger"
)

// Scheduler 有界并发的探测调度器
// 启动 min(concurrency, len(ports)) 个 worker，通过原子游标逐个认领端口，全部 worker 退出后返回
type Scheduler struct {
	prober  Prober
	limiter qos.Limiter
}

// NewScheduler limiter 为 nil 时使用进程级令牌池
func NewScheduler(prober Prober, limiter qos.Limiter) *Scheduler {
	return &Scheduler{prober: prober, limiter: limiter}
}

func (s *Scheduler) getLimiter() qos.Limiter {
	if s.limiter != nil {
		return s.limiter
	}
	return qos.Global()
}

// Run 执行探测，返回所有端口的结果 (无序) 与耗时
func (s *Scheduler) Run(ctx context.Context, target string, plan *portset.Plan) ([]model.ProbeResult, time.Duration) {
	ports := plan.Ports
	workers := plan.Workers()
	opts := ProbeOptions{Timeout: plan.Timeout, ServiceMode: plan.ServiceMode}
	limiter := s.getLimiter()

	var (
		cursor  int64 = -1
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]model.ProbeResult, 0, len(ports))
	)

	start := time.Now()
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				// 独占认领下一个端口
				idx := atomic.AddInt64(&cursor, 1)
				if idx >= int64(len(ports)) {
					return
				}
				res := s.probeOne(ctx, limiter, target, ports[idx], opts)

				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return results, time.Since(start)
}

// probeOne 在进程级令牌池内执行一次探测
func (s *Scheduler) probeOne(ctx context.Context, limiter qos.Limiter, target string, spec model.PortSpec, opts ProbeOptions) model.ProbeResult {
	if err := limiter.Acquire(ctx); err != nil {
		logger.Debugf("port %d skipped: %v", spec.Port, err)
		return model.ClosedResult(spec)
	}
	defer limiter.Release()

	res, reason := s.prober.Probe(ctx, target, spec, opts)
	if errors.Is(reason, model.ErrProbeTimeout) {
		limiter.OnFailure()
	} else {
		limiter.OnSuccess()
	}
	if reason != nil {
		logger.Debugf("port %d closed: %v", spec.Port, reason)
	}
	return res
}
