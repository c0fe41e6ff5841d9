package qos

import (
	"context"
	"sync"
	"sync/atomic"
)

// Limiter 进程级在途连接上限
// 所有扫描请求共享同一个实例，每个探测在拨号前 Acquire，得出结论后 Release
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
	// OnSuccess/OnFailure 反馈探测结果，自适应模式下据此调整上限
	OnSuccess()
	OnFailure()
	CurrentLimit() int
	InFlight() int
}

// AdaptiveLimiter 基于 AIMD (加性增、乘性减) 的令牌池
// - 连续成功 currentLimit 次：上限 +1
// - 一次超时：上限 ×0.7 (至少 -1)，不低于 minLimit
// adaptive=false 时上限固定为 maxLimit，OnSuccess/OnFailure 不生效
type AdaptiveLimiter struct {
	sem chan struct{}
	// 缩容时令牌已全部借出，记为欠账，Release 时销毁
	debt     int32
	inflight int32

	adaptive     bool
	currentLimit int
	minLimit     int
	maxLimit     int
	successCount int
	mu           sync.Mutex
}

// NewAdaptiveLimiter 创建自适应令牌池，initial 被修正到 [min, max]
func NewAdaptiveLimiter(initial, min, max int) *AdaptiveLimiter {
	if max < 1 {
		max = 1
	}
	if min < 1 {
		min = 1
	}
	if min > max {
		min = max
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}

	l := &AdaptiveLimiter{
		sem:          make(chan struct{}, max),
		adaptive:     true,
		currentLimit: initial,
		minLimit:     min,
		maxLimit:     max,
	}
	for i := 0; i < initial; i++ {
		l.sem <- struct{}{}
	}
	return l
}

// NewFixedLimiter 固定上限的令牌池
func NewFixedLimiter(max int) *AdaptiveLimiter {
	l := NewAdaptiveLimiter(max, max, max)
	l.adaptive = false
	return l
}

// Acquire 获取令牌，没有可用令牌时阻塞直到释放或 ctx 取消
func (l *AdaptiveLimiter) Acquire(ctx context.Context) error {
	select {
	case <-l.sem:
		atomic.AddInt32(&l.inflight, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 归还令牌，有欠账时销毁令牌而不归还
func (l *AdaptiveLimiter) Release() {
	atomic.AddInt32(&l.inflight, -1)

	for {
		d := atomic.LoadInt32(&l.debt)
		if d <= 0 {
			break
		}
		if atomic.CompareAndSwapInt32(&l.debt, d, d-1) {
			return
		}
	}

	select {
	case l.sem <- struct{}{}:
	default:
		// Release 次数多于 Acquire，丢弃
	}
}

// OnSuccess 线性增长
func (l *AdaptiveLimiter) OnSuccess() {
	if !l.adaptive {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.successCount++
	if l.successCount >= l.currentLimit {
		l.successCount = 0
		l.grow(1)
	}
}

// OnFailure 乘性减少，通常由探测超时触发
func (l *AdaptiveLimiter) OnFailure() {
	if !l.adaptive {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	decrease := l.currentLimit - int(float64(l.currentLimit)*0.7)
	if decrease < 1 {
		decrease = 1
	}
	l.shrink(decrease)
	l.successCount = 0
}

func (l *AdaptiveLimiter) grow(n int) {
	target := l.currentLimit + n
	if target > l.maxLimit {
		target = l.maxLimit
	}
	diff := target - l.currentLimit
	if diff <= 0 {
		return
	}
	l.currentLimit = target

	// 先抵消欠账，剩余的才注入新令牌
	for diff > 0 {
		d := atomic.LoadInt32(&l.debt)
		if d <= 0 {
			break
		}
		if atomic.CompareAndSwapInt32(&l.debt, d, d-1) {
			diff--
		}
	}
	for i := 0; i < diff; i++ {
		select {
		case l.sem <- struct{}{}:
		default:
		}
	}
}

func (l *AdaptiveLimiter) shrink(n int) {
	target := l.currentLimit - n
	if target < l.minLimit {
		target = l.minLimit
	}
	diff := l.currentLimit - target
	if diff <= 0 {
		return
	}
	l.currentLimit = target

	// 优先回收空闲令牌，回收不到的记为欠账
	removed := 0
	for i := 0; i < diff; i++ {
		select {
		case <-l.sem:
			removed++
		default:
		}
	}
	if remaining := diff - removed; remaining > 0 {
		atomic.AddInt32(&l.debt, int32(remaining))
	}
}

// CurrentLimit 当前上限
func (l *AdaptiveLimiter) CurrentLimit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLimit
}

// InFlight 当前已借出的令牌数
func (l *AdaptiveLimiter) InFlight() int {
	return int(atomic.LoadInt32(&l.inflight))
}
