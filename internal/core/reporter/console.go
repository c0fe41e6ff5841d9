package reporter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"

	"neoport/internal/core/model"
)

// ConsoleReporter 控制台表格输出
type ConsoleReporter struct {
	// 只输出开放端口
	OpenOnly bool
	out      io.Writer
}

func NewConsoleReporter(openOnly bool) *ConsoleReporter {
	return &ConsoleReporter{OpenOnly: openOnly, out: os.Stdout}
}

// WithWriter 替换输出目标 (测试)
func (r *ConsoleReporter) WithWriter(w io.Writer) *ConsoleReporter {
	r.out = w
	return r
}

func (r *ConsoleReporter) Report(ctx context.Context, resp *model.ScanResponse) error {
	if resp == nil {
		return nil
	}

	data := TabularData(resp)
	if r.OpenOnly {
		data = &model.ScanResponse{Results: resp.OpenResults()}
	}

	if len(data.Rows()) == 0 {
		fmt.Fprintln(r.out, pterm.Warning.Sprint("No open ports found."))
	} else if err := r.printTable(data); err != nil {
		return err
	}

	fmt.Fprintln(r.out, pterm.Info.Sprintf("%s [%s] total=%d open=%d closed=%d time=%ss",
		resp.Target, resp.ScanType, resp.TotalPorts, resp.OpenPorts, resp.ClosedPorts, resp.ScanTimeSeconds))
	return nil
}

func (r *ConsoleReporter) printTable(data TabularData) error {
	tableData := pterm.TableData{data.Headers()}
	tableData = append(tableData, data.Rows()...)

	out, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false).
		WithData(tableData).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(r.out, out)
	return nil
}
