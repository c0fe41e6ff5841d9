package portset

import (
	"strings"
	"time"

	"neoport/internal/core/model"
)

// Plan 端口解析结果
type Plan struct {
	ScanType    model.ScanType
	Ports       []model.PortSpec
	ServiceMode bool
	// 单端口有效超时
	Timeout     time.Duration
	Concurrency int
}

// Workers 实际 worker 数 = min(concurrency, len(ports))
func (p *Plan) Workers() int {
	if p.Concurrency < len(p.Ports) {
		return p.Concurrency
	}
	return len(p.Ports)
}

// Resolve 将扫描请求解析为端口列表
// 参数非法时返回 *model.ValidationError，此时不会发生任何网络访问
func (r *Registry) Resolve(req *model.ScanRequest) (*Plan, error) {
	if req == nil || strings.TrimSpace(req.Target) == "" {
		return nil, model.NewValidationError("target", "Target IP/hostname is required")
	}
	if req.Concurrency < 0 {
		return nil, model.NewValidationError("concurrency", "concurrency must be >= 1")
	}

	scanType := req.ScanType
	if scanType == "" {
		scanType = model.ScanTypeQuick
	}

	plan := &Plan{
		ScanType:    scanType,
		Timeout:     req.BaseTimeout(),
		Concurrency: req.EffectiveConcurrency(),
	}

	switch scanType {
	case model.ScanTypeCustom:
		ports, err := customRange(req.StartPort, req.EndPort)
		if err != nil {
			return nil, err
		}
		plan.Ports = r.specs(ports)
	case model.ScanTypeService:
		plan.ServiceMode = true
		plan.Ports = r.specs(r.quickPorts)
		if floor := time.Duration(model.ServiceMinTimeoutMs) * time.Millisecond; plan.Timeout < floor {
			plan.Timeout = floor
		}
	default:
		// quick, full (目前等同 quick) 以及未知类型
		plan.Ports = r.specs(r.quickPorts)
	}

	return plan, nil
}

func (r *Registry) specs(ports []int) []model.PortSpec {
	out := make([]model.PortSpec, 0, len(ports))
	for _, p := range ports {
		out = append(out, r.Spec(p))
	}
	return out
}

// customRange 校验并展开自定义端口范围 [start, end]
func customRange(start, end int) ([]int, error) {
	if start < 1 || start > 65535 {
		return nil, model.NewValidationError("startPort", "startPort must be between 1 and 65535, got %d", start)
	}
	if end < 1 || end > 65535 {
		return nil, model.NewValidationError("endPort", "endPort must be between 1 and 65535, got %d", end)
	}
	if end < start {
		return nil, model.NewValidationError("endPort", "endPort (%d) must be >= startPort (%d)", end, start)
	}
	if n := end - start + 1; n > model.MaxCustomPorts {
		return nil, model.NewValidationError("endPort", "custom range covers %d ports, maximum is %d", n, model.MaxCustomPorts)
	}

	ports := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		ports = append(ports, p)
	}
	return ports, nil
}
