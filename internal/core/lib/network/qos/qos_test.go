package qos

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdaptiveLimiter_Increase(t *testing.T) {
	l := NewAdaptiveLimiter(10, 1, 20)

	// 连续 10 次成功 -> 11
	for i := 0; i < 10; i++ {
		l.OnSuccess()
	}
	if l.CurrentLimit() != 11 {
		t.Errorf("Expected limit increase to 11, got %d", l.CurrentLimit())
	}

	// 再 11 次 -> 12
	for i := 0; i < 11; i++ {
		l.OnSuccess()
	}
	if l.CurrentLimit() != 12 {
		t.Errorf("Expected limit increase to 12, got %d", l.CurrentLimit())
	}
}

func TestAdaptiveLimiter_Decrease(t *testing.T) {
	l := NewAdaptiveLimiter(100, 10, 200)

	l.OnFailure()
	if l.CurrentLimit() != 70 {
		t.Errorf("Expected limit decrease to 70, got %d", l.CurrentLimit())
	}

	for i := 0; i < 20; i++ {
		l.OnFailure()
	}
	if l.CurrentLimit() != 10 {
		t.Errorf("Expected limit floor 10, got %d", l.CurrentLimit())
	}
}

func TestFixedLimiter_IgnoresFeedback(t *testing.T) {
	l := NewFixedLimiter(5)
	l.OnFailure()
	for i := 0; i < 50; i++ {
		l.OnSuccess()
	}
	if l.CurrentLimit() != 5 {
		t.Errorf("Expected fixed limit 5, got %d", l.CurrentLimit())
	}
}

func TestAdaptiveLimiter_AcquireBlocks(t *testing.T) {
	l := NewFixedLimiter(2)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if l.InFlight() != 2 {
		t.Fatalf("Expected 2 in flight, got %d", l.InFlight())
	}

	// 第三个应该阻塞直到超时
	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := l.Acquire(tctx); err == nil {
		t.Fatal("Expected acquire to block and time out")
	}

	l.Release()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Expected acquire after release, got %v", err)
	}
}

// 令牌全部借出时缩容，欠账在 Release 时偿还
func TestAdaptiveLimiter_ShrinkWhileBusy(t *testing.T) {
	l := NewAdaptiveLimiter(10, 1, 10)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
	}

	l.OnFailure() // 10 -> 7，欠 3 个令牌
	for i := 0; i < 10; i++ {
		l.Release()
	}
	if got := len(l.sem); got != 7 {
		t.Errorf("Expected 7 idle tokens after paying debt, got %d", got)
	}
}

func TestAdaptiveLimiter_CeilingUnderLoad(t *testing.T) {
	l := NewFixedLimiter(4)
	var cur, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&cur, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&cur, -1)
			l.Release()
		}()
	}
	wg.Wait()

	if peak > 4 {
		t.Errorf("Expected at most 4 concurrent holders, saw %d", peak)
	}
}

func TestSetup(t *testing.T) {
	orig := Global()
	defer SetGlobal(orig)

	l := Setup(300, 20, true)
	if Global() != l {
		t.Fatal("Expected Setup to replace global limiter")
	}
	if l.CurrentLimit() != 300 {
		t.Errorf("Expected 300, got %d", l.CurrentLimit())
	}

	l = Setup(0, 0, false)
	if l.CurrentLimit() != 1<<16 {
		t.Errorf("Expected unbounded ceiling, got %d", l.CurrentLimit())
	}
}
