/**
 * 结果输出接口定义
 * @description: 扫描结果输出到控制台/CSV/JSON，与扫描引擎解耦
 */

package reporter

import (
	"context"
	"errors"

	"neoport/internal/core/model"
)

// TabularData 可以被渲染为表格的数据
type TabularData interface {
	Headers() []string
	Rows() [][]string
}

// Reporter 结果输出
type Reporter interface {
	Report(ctx context.Context, resp *model.ScanResponse) error
}

// MultiReporter 同时输出到多个目标 (e.g., Console + File)
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

// Report 依次输出，某个目标失败不影响其他目标
func (m *MultiReporter) Report(ctx context.Context, resp *model.ScanResponse) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(ctx, resp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
