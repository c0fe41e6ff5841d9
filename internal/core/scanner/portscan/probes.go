package portscan

import "time"

// 连接建立后写入的探测数据
type payload struct {
	data []byte
	// 延迟写入，先给服务端发送欢迎信息的机会
	delay time.Duration
}

const ftpQuitDelay = 300 * time.Millisecond

var (
	httpGetProbe  = []byte("GET / HTTP/1.0\r\nUser-Agent: neoport\r\nAccept: */*\r\n\r\n")
	httpHeadProbe = []byte("HEAD / HTTP/1.0\r\n\r\n")
	blankLine     = []byte("\r\n")
	ftpQuit       = []byte("QUIT\r\n")
)

// 常见 Web 端口
var webPorts = map[int]struct{}{
	80:   {},
	3000: {},
	8000: {},
	8008: {},
	8080: {},
	8888: {},
	9200: {},
}

// servicePayload 服务识别模式下按端口选择探测数据
func servicePayload(port int) payload {
	if _, ok := webPorts[port]; ok {
		return payload{data: httpGetProbe}
	}
	switch port {
	case 20, 21:
		return payload{data: ftpQuit, delay: ftpQuitDelay}
	case 110, 143:
		return payload{data: blankLine}
	default:
		return payload{data: httpHeadProbe}
	}
}

// tlsPayload 握手成功后的应用层探测
func tlsPayload(port int) payload {
	switch port {
	case 443, 8443:
		return payload{data: httpHeadProbe}
	default:
		// smtps/imaps/pop3s 通常握手后直接发送欢迎信息
		return payload{data: blankLine}
	}
}
