package portscan

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoport/internal/core/model"
)

// startListener 启动本地监听，handler 在独立 goroutine 中处理每个连接
func startListener(t *testing.T, handler func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go handler(c)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func tcpSpec(port int, service string) model.PortSpec {
	return model.PortSpec{Port: port, Protocol: model.ProtocolTCP, Service: service}
}

func TestProbe_SilentListenerIsOpen(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	port := startListener(t, func(c net.Conn) {
		defer c.Close()
		<-hold
	})

	res, reason := NewTCPProber(nil).Probe(context.Background(), "127.0.0.1", tcpSpec(port, "unknown"), ProbeOptions{Timeout: 300 * time.Millisecond})
	assert.NoError(t, reason)
	assert.Equal(t, model.StatusOpen, res.Status)
	assert.Equal(t, "-", res.Banner)
	assert.Equal(t, "-", res.Version)
	assert.Equal(t, model.MethodConnect, res.Method)
	assert.Equal(t, "unknown", res.Service)
}

func TestProbe_SSHBanner(t *testing.T) {
	port := startListener(t, func(c net.Conn) {
		defer c.Close()
		c.Write([]byte("OpenSSH_8.9.1 banner line"))
		time.Sleep(200 * time.Millisecond)
	})

	res, reason := NewTCPProber(nil).Probe(context.Background(), "127.0.0.1", tcpSpec(port, "unknown"), ProbeOptions{Timeout: time.Second})
	assert.NoError(t, reason)
	assert.Equal(t, model.StatusOpen, res.Status)
	assert.Equal(t, "ssh", res.Service)
	assert.Equal(t, "8.9.1", res.Version)
	assert.Equal(t, "OpenSSH_8.9.1 banner line", res.Banner)
	assert.Equal(t, model.MethodBanner, res.Method)
}

func TestProbe_ServiceModeWritesProbe(t *testing.T) {
	var got atomic.Value
	port := startListener(t, func(c net.Conn) {
		defer c.Close()
		line, err := bufio.NewReader(c).ReadString('\n')
		if err != nil {
			return
		}
		got.Store(line)
		c.Write([]byte("HTTP/1.0 200 OK\r\nServer: test-httpd/1.2.3\r\n\r\n"))
	})

	res, reason := NewTCPProber(nil).Probe(context.Background(), "127.0.0.1", tcpSpec(port, "unknown"), ProbeOptions{Timeout: time.Second, ServiceMode: true})
	require.NoError(t, reason)
	assert.Equal(t, model.StatusOpen, res.Status)
	assert.Equal(t, "http", res.Service)
	assert.Equal(t, "1.2.3", res.Version)
	assert.Equal(t, model.MethodServiceProbe, res.Method)
	assert.Equal(t, "HTTP/1.0 200 OK | Server: test-httpd/1.2.3", res.Banner)
	assert.True(t, strings.HasPrefix(got.Load().(string), "HEAD / HTTP/1.0"))
}

func TestProbe_PeerClosesWithoutData(t *testing.T) {
	port := startListener(t, func(c net.Conn) {
		c.Close()
	})

	res, reason := NewTCPProber(nil).Probe(context.Background(), "127.0.0.1", tcpSpec(port, "unknown"), ProbeOptions{Timeout: time.Second})
	assert.NoError(t, reason)
	assert.Equal(t, model.StatusOpen, res.Status)
	assert.Equal(t, model.MethodConnect, res.Method)
	assert.Equal(t, "-", res.Banner)
}

func TestProbe_RefusedIsClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	res, reason := NewTCPProber(nil).Probe(context.Background(), "127.0.0.1", tcpSpec(port, "http"), ProbeOptions{Timeout: time.Second})
	assert.ErrorIs(t, reason, model.ErrProbeFailed)
	assert.Equal(t, model.StatusClosed, res.Status)
	assert.Equal(t, "-", res.Banner)
	assert.Equal(t, "-", res.Version)
	assert.Equal(t, "http", res.Service)
}

// blockingDialer 拨号一直阻塞到 ctx 结束
type blockingDialer struct{}

func (blockingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestProbe_ConnectTimeoutIsClosed(t *testing.T) {
	start := time.Now()
	res, reason := NewTCPProber(blockingDialer{}).Probe(context.Background(), "192.0.2.1", tcpSpec(22, "ssh"), ProbeOptions{Timeout: 100 * time.Millisecond})
	assert.ErrorIs(t, reason, model.ErrProbeTimeout)
	assert.Equal(t, model.StatusClosed, res.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProbe_TLSHandshake(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, _ := strconv.Atoi(portStr)

	spec := model.PortSpec{Port: port, Protocol: model.ProtocolTLS, Service: "https"}
	res, reason := NewTCPProber(nil).Probe(context.Background(), "127.0.0.1", spec, ProbeOptions{Timeout: 500 * time.Millisecond})
	assert.NoError(t, reason)
	assert.Equal(t, model.StatusOpen, res.Status)
	assert.Equal(t, model.MethodTLSHandshake, res.Method)
	assert.Equal(t, model.ProtocolTLS, res.Protocol)
}

func TestProbe_TLSHandshakeFailureIsClosed(t *testing.T) {
	port := startListener(t, func(c net.Conn) {
		c.Write([]byte("220 plain text service\r\n"))
		c.Close()
	})

	spec := model.PortSpec{Port: port, Protocol: model.ProtocolTLS, Service: "smtps"}
	res, reason := NewTCPProber(nil).Probe(context.Background(), "127.0.0.1", spec, ProbeOptions{Timeout: 500 * time.Millisecond})
	assert.Error(t, reason)
	assert.Equal(t, model.StatusClosed, res.Status)
	assert.Equal(t, model.MethodTLSHandshake, res.Method)
	assert.Equal(t, "-", res.Banner)
}

func TestResultCell_SingleAssignment(t *testing.T) {
	cell := newResultCell()
	first := model.ProbeResult{Port: 1, Status: model.StatusOpen}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := first
			if i%2 == 1 {
				r = model.ClosedResult(model.PortSpec{Port: 1})
			}
			if cell.resolve(r, nil) {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	<-cell.done

	assert.Equal(t, int32(1), wins)
	assert.False(t, cell.resolve(first, model.ErrProbeTimeout), "late events are ignored")
	assert.Nil(t, cell.reason)
}

func TestServicePayload(t *testing.T) {
	assert.Equal(t, httpGetProbe, servicePayload(80).data)
	assert.Equal(t, httpGetProbe, servicePayload(3000).data)
	assert.Equal(t, ftpQuit, servicePayload(21).data)
	assert.Equal(t, ftpQuitDelay, servicePayload(21).delay)
	assert.Equal(t, blankLine, servicePayload(110).data)
	assert.Equal(t, blankLine, servicePayload(143).data)
	assert.Equal(t, httpHeadProbe, servicePayload(6379).data)
	assert.Equal(t, httpHeadProbe, tlsPayload(443).data)
	assert.Equal(t, blankLine, tlsPayload(993).data)
}

func TestProbe_CancelledScanIsClosed(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	port := startListener(t, func(c net.Conn) {
		defer c.Close()
		<-hold
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res, reason := NewTCPProber(nil).Probe(ctx, "127.0.0.1", tcpSpec(port, "unknown"), ProbeOptions{Timeout: 2 * time.Second})
	assert.ErrorIs(t, reason, model.ErrProbeFailed)
	assert.ErrorIs(t, reason, context.Canceled)
	assert.Equal(t, model.StatusClosed, res.Status)
	assert.Equal(t, "-", res.Banner)
	assert.Equal(t, model.MethodConnect, res.Method)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSendPayload_DelayedWrite(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	run := &probeRun{cell: newResultCell()}
	start := time.Now()
	run.sendPayload(client, payload{data: ftpQuit, delay: 100 * time.Millisecond})

	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "QUIT\r\n", string(buf[:n]))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestSendPayload_NoWriteAfterFinish(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	run := &probeRun{cell: newResultCell()}
	require.True(t, run.attach(client))
	run.sendPayload(client, payload{data: ftpQuit, delay: 50 * time.Millisecond})
	// 探测在延迟写入之前结束
	run.finish()

	server.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	buf := make([]byte, 16)
	n, err := server.Read(buf)
	assert.Error(t, err)
	assert.Zero(t, n)

	// 已结束的探测不再安排写入
	first := run.pending
	run.sendPayload(client, payload{data: ftpQuit, delay: time.Millisecond})
	assert.Same(t, first, run.pending)
}
