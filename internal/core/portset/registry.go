/**
 * 端口表
 * @description: 常用端口-服务名映射、TLS 端口集合、UDP 标签集合。进程启动时构建一次，之后只读。
 */
package portset

import (
	"sort"
	"sync"

	"neoport/internal/core/model"
)

// 服务名缺省值 (端口不在表中)
const UnknownService = "unknown"

// wellKnownPorts 快速扫描使用的固定端口表
var wellKnownPorts = map[int]string{
	20:    "ftp",
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "dns",
	67:    "dhcp",
	68:    "dhcp",
	69:    "tftp",
	80:    "http",
	110:   "pop3",
	143:   "imap",
	443:   "https",
	465:   "smtps",
	993:   "imaps",
	995:   "pop3s",
	1433:  "mssql",
	1521:  "oracle",
	3000:  "dev-http",
	3306:  "mysql",
	3389:  "rdp",
	5432:  "postgres",
	5900:  "vnc",
	6379:  "redis",
	8080:  "http-alt",
	8443:  "https-alt",
	9000:  "php-fpm",
	9200:  "elasticsearch",
	11211: "memcached",
}

// 不在快速扫描列表中，但需要服务名的端口
var namedOnly = map[int]string{
	123: "ntp",
	161: "snmp",
}

var tlsPorts = []int{443, 465, 993, 995, 8443}

// UDP 标签只用于展示，这些端口仍然按 TCP 探测
var udpLabelPorts = []int{53, 67, 68, 69, 123, 161}

// Registry 只读端口表
type Registry struct {
	services   map[int]string
	quickPorts []int
	tls        map[int]struct{}
	udp        map[int]struct{}
}

// NewRegistry 构建端口表，extra 追加或覆盖服务名，不改变快速扫描的端口列表
func NewRegistry(extra map[int]string) *Registry {
	r := &Registry{
		services: make(map[int]string, len(wellKnownPorts)+len(namedOnly)+len(extra)),
		tls:      make(map[int]struct{}, len(tlsPorts)),
		udp:      make(map[int]struct{}, len(udpLabelPorts)),
	}
	for port, name := range wellKnownPorts {
		r.services[port] = name
		r.quickPorts = append(r.quickPorts, port)
	}
	sort.Ints(r.quickPorts)
	for port, name := range namedOnly {
		r.services[port] = name
	}
	for port, name := range extra {
		if port < 1 || port > 65535 || name == "" {
			continue
		}
		r.services[port] = name
	}
	for _, p := range tlsPorts {
		r.tls[p] = struct{}{}
	}
	for _, p := range udpLabelPorts {
		r.udp[p] = struct{}{}
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Init 构建进程级端口表，只有第一次调用生效
func Init(extra map[int]string) *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(extra)
	})
	return defaultRegistry
}

// Default 获取进程级端口表，未 Init 时使用内置表
func Default() *Registry {
	return Init(nil)
}

// ServiceName 端口对应的服务名
func (r *Registry) ServiceName(port int) string {
	if name, ok := r.services[port]; ok {
		return name
	}
	return UnknownService
}

// ProtocolOf 端口的协议标签
func (r *Registry) ProtocolOf(port int) model.Protocol {
	if _, ok := r.tls[port]; ok {
		return model.ProtocolTLS
	}
	if _, ok := r.udp[port]; ok {
		return model.ProtocolUDP
	}
	return model.ProtocolTCP
}

// Spec 构建单个端口的描述
func (r *Registry) Spec(port int) model.PortSpec {
	return model.PortSpec{
		Port:     port,
		Protocol: r.ProtocolOf(port),
		Service:  r.ServiceName(port),
	}
}

// QuickPorts 快速扫描端口列表 (升序副本)
func (r *Registry) QuickPorts() []int {
	out := make([]int, len(r.quickPorts))
	copy(out, r.quickPorts)
	return out
}
