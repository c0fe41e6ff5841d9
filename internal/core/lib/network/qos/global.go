package qos

import "sync"

var (
	globalMu      sync.RWMutex
	globalLimiter Limiter = NewFixedLimiter(1000)
)

// Setup 按配置创建进程级令牌池，max<=0 时不限制 (使用极大的固定上限)
func Setup(max, min int, adaptive bool) Limiter {
	var l Limiter
	switch {
	case max <= 0:
		l = NewFixedLimiter(1 << 16)
	case adaptive:
		l = NewAdaptiveLimiter(max, min, max)
	default:
		l = NewFixedLimiter(max)
	}
	SetGlobal(l)
	return l
}

// SetGlobal 替换进程级令牌池
func SetGlobal(l Limiter) {
	if l == nil {
		return
	}
	globalMu.Lock()
	globalLimiter = l
	globalMu.Unlock()
}

// Global 获取进程级令牌池
func Global() Limiter {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLimiter
}
