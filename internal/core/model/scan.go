/**
 * 端口扫描模型定义 (Core Domain)
 * @description: 扫描请求、端口描述、探测结果与扫描响应。CLI 与 HTTP 两种入口最终都转换为 ScanRequest。
 */

package model

import (
	"strconv"
	"time"
)

// ScanType 扫描类型
type ScanType string

const (
	ScanTypeQuick   ScanType = "quick"
	ScanTypeFull    ScanType = "full"
	ScanTypeService ScanType = "service"
	ScanTypeCustom  ScanType = "custom"
)

const (
	DefaultConcurrency = 100
	DefaultTimeoutMs   = 1200
	// 服务识别模式下的最小超时
	ServiceMinTimeoutMs = 1500
	// 自定义范围最多包含的端口数
	MaxCustomPorts = 2000
)

// 结果中缺省字段的占位符
const NoValue = "-"

// ScanRequest 扫描请求
// 只有 Target 必填，其余字段缺省时取默认值
type ScanRequest struct {
	Target      string   `json:"target"`
	ScanType    ScanType `json:"scanType"`
	StartPort   int      `json:"startPort,omitempty"`
	EndPort     int      `json:"endPort,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
	TimeoutMs   int      `json:"timeoutMs,omitempty"`
}

// EffectiveConcurrency 非正数回退到默认值
func (r *ScanRequest) EffectiveConcurrency() int {
	if r.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return r.Concurrency
}

// BaseTimeout 请求的单端口超时，非正数回退到默认值
func (r *ScanRequest) BaseTimeout() time.Duration {
	ms := r.TimeoutMs
	if ms <= 0 {
		ms = DefaultTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Protocol 端口协议标签
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolTLS Protocol = "tcp+tls"
	// 仅作为标签，实际探测仍然走 TCP
	ProtocolUDP Protocol = "udp"
)

// PortSpec 待探测端口
type PortSpec struct {
	Port     int      `json:"port"`
	Protocol Protocol `json:"protocol"`
	Service  string   `json:"service"`
}

// IsTLS 是否需要先完成 TLS 握手
func (p PortSpec) IsTLS() bool {
	return p.Protocol == ProtocolTLS
}

// PortStatus 端口状态
type PortStatus string

const (
	StatusOpen   PortStatus = "open"
	StatusClosed PortStatus = "closed"
)

// ProbeMethod 得出结论的探测方式
type ProbeMethod string

const (
	MethodConnect      ProbeMethod = "tcp-connect"
	MethodBanner       ProbeMethod = "tcp-banner"
	MethodServiceProbe ProbeMethod = "tcp-service-probe"
	MethodTLSHandshake ProbeMethod = "tls-handshake"
)

// ProbeResult 单端口探测结果
type ProbeResult struct {
	Port     int         `json:"port"`
	Status   PortStatus  `json:"status"`
	Protocol Protocol    `json:"protocol"`
	Service  string      `json:"service"`
	Banner   string      `json:"banner"`
	Version  string      `json:"version"`
	Method   ProbeMethod `json:"method"`
}

// ClosedResult 关闭端口的结果，banner/version 固定为占位符
// method 为尝试过的探测方式：TLS 端口为 tls-handshake，其余为 tcp-connect
func ClosedResult(spec PortSpec) ProbeResult {
	method := MethodConnect
	if spec.IsTLS() {
		method = MethodTLSHandshake
	}
	return ProbeResult{
		Port:     spec.Port,
		Status:   StatusClosed,
		Protocol: spec.Protocol,
		Service:  spec.Service,
		Banner:   NoValue,
		Version:  NoValue,
		Method:   method,
	}
}

// ScanResponse 扫描响应
type ScanResponse struct {
	Target          string        `json:"target"`
	ScanType        ScanType      `json:"scanType"`
	TotalPorts      int           `json:"totalPorts"`
	OpenPorts       int           `json:"openPorts"`
	ClosedPorts     int           `json:"closedPorts"`
	ScanTimeSeconds string        `json:"scanTimeSeconds"`
	Results         []ProbeResult `json:"results"`
}

// Headers 表头 (reporter.TabularData)
func (r *ScanResponse) Headers() []string {
	return []string{"Port", "Protocol", "Status", "Service", "Version", "Method", "Banner"}
}

// Rows 表格行
func (r *ScanResponse) Rows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, []string{
			strconv.Itoa(res.Port),
			string(res.Protocol),
			string(res.Status),
			res.Service,
			res.Version,
			string(res.Method),
			res.Banner,
		})
	}
	return rows
}

// OpenResults 仅返回开放端口
func (r *ScanResponse) OpenResults() []ProbeResult {
	out := make([]ProbeResult, 0, r.OpenPorts)
	for _, res := range r.Results {
		if res.Status == StatusOpen {
			out = append(out, res)
		}
	}
	return out
}
