package portscan

import (
	"fmt"
	"sort"
	"time"

	"neoport/internal/core/model"
	"neoport/internal/core/portset"
)

// Aggregate 汇总探测结果
// 按端口升序排序并统计数量，结果与端口列表不一致时返回 *model.AggregateFailure
func Aggregate(target string, plan *portset.Plan, results []model.ProbeResult, elapsed time.Duration) (resp *model.ScanResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			resp = nil
			err = model.WrapAggregateFailure(cause, "panic while aggregating")
		}
	}()

	if len(results) != len(plan.Ports) {
		return nil, model.NewAggregateFailure("expected %d results, got %d", len(plan.Ports), len(results))
	}

	expected := make(map[int]struct{}, len(plan.Ports))
	for _, spec := range plan.Ports {
		expected[spec.Port] = struct{}{}
	}

	sorted := make([]model.ProbeResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Port < sorted[j].Port
	})

	resp = &model.ScanResponse{
		Target:          target,
		ScanType:        plan.ScanType,
		TotalPorts:      len(sorted),
		ScanTimeSeconds: fmt.Sprintf("%.2f", elapsed.Seconds()),
		Results:         sorted,
	}

	for i := range sorted {
		r := &sorted[i]
		if _, ok := expected[r.Port]; !ok {
			return nil, model.NewAggregateFailure("unexpected port %d in results", r.Port)
		}
		if i > 0 && sorted[i-1].Port == r.Port {
			return nil, model.NewAggregateFailure("duplicate result for port %d", r.Port)
		}

		switch r.Status {
		case model.StatusOpen:
			resp.OpenPorts++
		case model.StatusClosed:
			// closed 端口不携带 banner/version
			r.Banner = model.NoValue
			r.Version = model.NoValue
			resp.ClosedPorts++
		default:
			return nil, model.NewAggregateFailure("unknown status %q for port %d", r.Status, r.Port)
		}
	}

	return resp, nil
}
