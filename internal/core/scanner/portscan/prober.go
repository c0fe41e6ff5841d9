package portscan

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"neoport/internal/core/lib/network/dialer"
	"neoport/internal/core/model"
	"neoport/internal/pkg/fingerprint/banner"
)

// 首个数据块的最大读取长度
const readChunkSize = 1024

// ProbeOptions 单端口探测参数
type ProbeOptions struct {
	Timeout     time.Duration
	ServiceMode bool
}

// Prober 单端口探测器
// 返回的 error 只说明端口判定为 closed 的原因 (超时/拒绝/重置/握手失败)，不会中断扫描
type Prober interface {
	Probe(ctx context.Context, target string, spec model.PortSpec, opts ProbeOptions) (model.ProbeResult, error)
}

// probeState 探测状态机
// INIT -> CONNECTING -> CONNECTED -> PROBING -> DONE
type probeState int32

const (
	stateInit probeState = iota
	stateConnecting
	stateConnected // TCP 已建立 (TLS 端口尚未完成握手)
	stateProbing   // 已写入探测数据或 TLS 握手完成，等待首个数据块
	stateDone
)

// resultCell 单次赋值的结果单元
// 连接、读取、超时三个事件源并发竞争，只有第一个 resolve 生效，之后的事件全部忽略
type resultCell struct {
	settled atomic.Bool
	done    chan struct{}
	result  model.ProbeResult
	reason  error
}

func newResultCell() *resultCell {
	return &resultCell{done: make(chan struct{})}
}

// resolve 写入结果，返回 false 表示已经被其他事件抢先
func (c *resultCell) resolve(result model.ProbeResult, reason error) bool {
	if !c.settled.CompareAndSwap(false, true) {
		return false
	}
	c.result = result
	c.reason = reason
	close(c.done)
	return true
}

// TCPProber 基于 TCP connect / TLS 握手的探测器
type TCPProber struct {
	dialer dialer.Dialer
}

// NewTCPProber d 为 nil 时使用全局拨号器
func NewTCPProber(d dialer.Dialer) *TCPProber {
	return &TCPProber{dialer: d}
}

func (p *TCPProber) getDialer() dialer.Dialer {
	if p.dialer != nil {
		return p.dialer
	}
	return dialer.Get()
}

// Probe 探测单个端口，保证在 opts.Timeout 之后不久一定返回
func (p *TCPProber) Probe(ctx context.Context, target string, spec model.PortSpec, opts ProbeOptions) (model.ProbeResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(model.DefaultTimeoutMs) * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	parent := ctx
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	run := &probeRun{
		target:      target,
		spec:        spec,
		serviceMode: opts.ServiceMode,
		deadline:    deadline,
		cell:        newResultCell(),
	}

	// 超时事件源
	timer := time.AfterFunc(timeout, run.onTimeout)
	defer timer.Stop()

	go run.execute(ctx, p.getDialer())

	select {
	case <-run.cell.done:
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			// 扫描被取消：未得出结论的端口一律 closed
			run.closed(fmt.Errorf("%w: %w", model.ErrProbeFailed, err))
		} else {
			run.onTimeout()
		}
		<-run.cell.done
	}
	run.finish()

	return run.cell.result, run.cell.reason
}

// probeRun 一次探测的运行时状态
type probeRun struct {
	target      string
	spec        model.PortSpec
	serviceMode bool
	deadline    time.Time
	cell        *resultCell
	state       atomic.Int32

	mu       sync.Mutex
	conn     net.Conn
	finished bool
	pending  *time.Timer
}

func (r *probeRun) setState(s probeState) {
	r.state.Store(int32(s))
}

func (r *probeRun) getState() probeState {
	return probeState(r.state.Load())
}

// attach 登记连接，探测已结束时返回 false，由调用方关闭连接
func (r *probeRun) attach(conn net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return false
	}
	r.conn = conn
	return true
}

// finish 释放连接，之后迟到的事件只会看到已关闭的连接
func (r *probeRun) finish() {
	r.setState(stateDone)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
	if r.pending != nil {
		r.pending.Stop()
	}
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

func (r *probeRun) address() string {
	return net.JoinHostPort(r.target, strconv.Itoa(r.spec.Port))
}

func (r *probeRun) closed(reason error) {
	r.cell.resolve(model.ClosedResult(r.spec), reason)
}

func (r *probeRun) open(method model.ProbeMethod, text string, m banner.Match) {
	r.cell.resolve(model.ProbeResult{
		Port:     r.spec.Port,
		Status:   model.StatusOpen,
		Protocol: r.spec.Protocol,
		Service:  m.Service,
		Banner:   text,
		Version:  m.Version,
		Method:   method,
	}, nil)
}

// openSilent 连接成功但没有收到任何数据
func (r *probeRun) openSilent(method model.ProbeMethod) {
	r.open(method, model.NoValue, banner.Match{Service: r.spec.Service, Version: model.NoValue})
}

// onTimeout 超时事件，结论取决于当时所处的状态
func (r *probeRun) onTimeout() {
	switch r.getState() {
	case stateConnected:
		if r.spec.IsTLS() {
			r.closed(fmt.Errorf("%w: tls handshake", model.ErrProbeTimeout))
			return
		}
		r.openSilent(model.MethodConnect)
	case stateProbing:
		if r.spec.IsTLS() {
			r.openSilent(model.MethodTLSHandshake)
			return
		}
		r.openSilent(model.MethodConnect)
	case stateDone:
	default:
		r.closed(fmt.Errorf("%w: connect", model.ErrProbeTimeout))
	}
}

func (r *probeRun) execute(ctx context.Context, d dialer.Dialer) {
	r.setState(stateConnecting)
	conn, err := d.DialContext(ctx, "tcp", r.address())
	if err != nil {
		r.closed(classifyErr(err, "connect"))
		return
	}
	if !r.attach(conn) {
		conn.Close()
		return
	}
	conn.SetDeadline(r.deadline)
	r.setState(stateConnected)

	if r.spec.IsTLS() {
		r.probeTLS(ctx, conn)
		return
	}
	r.probeTCP(conn)
}

func (r *probeRun) probeTLS(ctx context.Context, conn net.Conn) {
	cfg := &tls.Config{
		// 仅用于抓取 banner，不建立信任
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS10,
	}
	if net.ParseIP(r.target) == nil {
		cfg.ServerName = r.target
	}

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		r.closed(classifyErr(err, "tls handshake"))
		return
	}
	r.setState(stateProbing)

	pl := tlsPayload(r.spec.Port)
	tlsConn.Write(pl.data)

	raw, _ := readChunk(tlsConn)
	// 握手成功即判定开放，读取失败只影响 banner
	text, m := banner.ClassifyRaw(raw, r.spec.Service)
	r.open(model.MethodTLSHandshake, text, m)
}

func (r *probeRun) probeTCP(conn net.Conn) {
	method := model.MethodBanner
	if r.serviceMode {
		method = model.MethodServiceProbe
		r.sendPayload(conn, servicePayload(r.spec.Port))
	}
	r.setState(stateProbing)

	raw, err := readChunk(conn)
	if len(raw) > 0 {
		text, m := banner.ClassifyRaw(raw, r.spec.Service)
		r.open(method, text, m)
		return
	}

	switch {
	case err == nil, errors.Is(err, io.EOF), isTimeout(err):
		// 对端关闭或一直沉默：只要连接成功就是 open
		r.openSilent(model.MethodConnect)
	default:
		r.closed(classifyErr(err, "read"))
	}
}

// sendPayload 写入探测数据，有延迟的数据异步写入，读取不等待它
func (r *probeRun) sendPayload(conn net.Conn, pl payload) {
	if len(pl.data) == 0 {
		return
	}
	if pl.delay <= 0 {
		conn.Write(pl.data)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.pending = time.AfterFunc(pl.delay, func() {
		conn.Write(pl.data)
	})
}

// readChunk 读取首个数据块
func readChunk(conn net.Conn) ([]byte, error) {
	buf := make([]byte, readChunkSize)
	n, err := conn.Read(buf)
	return buf[:n], err
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classifyErr 将底层错误归为超时或一般探测错误
func classifyErr(err error, phase string) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", model.ErrProbeTimeout, phase, err)
	}
	return fmt.Errorf("%w: %s: %v", model.ErrProbeFailed, phase, err)
}
