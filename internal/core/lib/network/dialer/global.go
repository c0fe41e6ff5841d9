package dialer

import (
	"sync"
	"time"
)

var (
	globalMu     sync.RWMutex
	globalDialer Dialer = NewDefaultDialer(10 * time.Second)
)

// SetGlobalDialer 设置全局拨号器 (配置了出口代理时)
func SetGlobalDialer(d Dialer) {
	if d == nil {
		return
	}
	globalMu.Lock()
	globalDialer = d
	globalMu.Unlock()
}

// Get 获取全局拨号器
func Get() Dialer {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalDialer
}
