package options

import (
	"fmt"
	"strings"

	"neoport/internal/core/model"
)

// PortScanOptions 命令行端口扫描参数
type PortScanOptions struct {
	Target      string
	ScanType    string
	StartPort   int
	EndPort     int
	Concurrency int
	TimeoutMs   int
	// 控制台只显示开放端口
	OpenOnly bool
	Output   OutputOptions
}

func NewPortScanOptions() *PortScanOptions {
	return &PortScanOptions{
		ScanType:    string(model.ScanTypeQuick),
		Concurrency: model.DefaultConcurrency,
		TimeoutMs:   model.DefaultTimeoutMs,
		OpenOnly:    true,
	}
}

// Validate 命令行层面的基本校验，端口范围等规则由扫描器统一校验
func (o *PortScanOptions) Validate() error {
	if strings.TrimSpace(o.Target) == "" {
		return fmt.Errorf("target is required")
	}
	if model.ScanType(o.ScanType) == model.ScanTypeCustom && (o.StartPort == 0 || o.EndPort == 0) {
		return fmt.Errorf("--start and --end are required for custom scan")
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1")
	}
	return nil
}

// ToRequest 转换为扫描请求
func (o *PortScanOptions) ToRequest() *model.ScanRequest {
	return &model.ScanRequest{
		Target:      strings.TrimSpace(o.Target),
		ScanType:    model.ScanType(strings.ToLower(o.ScanType)),
		StartPort:   o.StartPort,
		EndPort:     o.EndPort,
		Concurrency: o.Concurrency,
		TimeoutMs:   o.TimeoutMs,
	}
}
