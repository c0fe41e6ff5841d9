// 结构化日志辅助方法
package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampFormat)
}

// NowFormatted 返回当前时间的格式化字符串
func NowFormatted() string {
	return FormatTimestamp(time.Now())
}

// LogType 日志类型枚举
type LogType string

const (
	// AccessLog 访问日志 - 记录HTTP请求
	AccessLog LogType = "access"
	// ErrorLog 错误日志 - 记录系统错误和异常
	ErrorLog LogType = "error"
	// SystemLog 系统日志 - 记录启动、关闭、配置变更
	SystemLog LogType = "system"
	// ScanLog 扫描日志 - 记录扫描任务执行情况
	ScanLog LogType = "scan"
)

// ScanLogEntry 扫描日志条目
type ScanLogEntry struct {
	Target      string                 `json:"target"`       // 扫描目标
	ScanType    string                 `json:"scan_type"`    // quick, full, service, custom
	Status      string                 `json:"status"`       // started, completed, rejected, failed
	TotalPorts  int                    `json:"total_ports"`  // 端口总数
	OpenPorts   int                    `json:"open_ports"`   // 开放端口数
	ClosedPorts int                    `json:"closed_ports"` // 关闭端口数
	Duration    int64                  `json:"duration"`     // 扫描耗时（毫秒）
	ExtraFields map[string]interface{} `json:"extra_fields"` // 额外字段
}

// LogScanEvent 记录扫描日志
func LogScanEvent(entry ScanLogEntry) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":         ScanLog,
		"target":       entry.Target,
		"scan_type":    entry.ScanType,
		"status":       entry.Status,
		"total_ports":  entry.TotalPorts,
		"open_ports":   entry.OpenPorts,
		"closed_ports": entry.ClosedPorts,
		"duration":     entry.Duration,
	}
	for k, v := range entry.ExtraFields {
		fields[k] = v
	}

	switch entry.Status {
	case "failed":
		LoggerInstance.logger.WithFields(fields).Error("Port scan failed")
	case "rejected":
		LoggerInstance.logger.WithFields(fields).Warn("Port scan rejected")
	default:
		LoggerInstance.logger.WithFields(fields).Info("Port scan " + entry.Status)
	}
}

// LogAccessRequest 记录HTTP访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string) {
	if LoggerInstance == nil {
		return
	}

	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": time.Since(startTime).Milliseconds(),
		"client_ip":     c.ClientIP(),
		"user_agent":    c.Request.UserAgent(),
		"request_id":    requestID,
		"request_size":  c.Request.ContentLength,
		"response_size": c.Writer.Size(),
	}).Info("HTTP request processed")
}

// LogError 记录错误日志
func LogError(err error, requestID, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil || err == nil {
		return
	}

	fields := logrus.Fields{
		"type":       ErrorLog,
		"error":      err.Error(),
		"request_id": requestID,
		"path":       path,
		"method":     method,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	// %+v 带出 pkg/errors 记录的调用栈
	LoggerInstance.logger.WithFields(fields).Errorf("System error occurred: %+v", err)
}

// LogSystemEvent 记录系统事件日志
func LogSystemEvent(component, event, message string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
	}
	for k, v := range extraFields {
		fields[k] = v
	}
	LoggerInstance.logger.WithFields(fields).Info(message)
}
