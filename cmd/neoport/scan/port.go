package scan

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"neoport/internal/app/neoport/setup"
	"neoport/internal/core/options"
	"neoport/internal/core/reporter"
)

func NewPortScanCmd(cfg ConfigProvider) *cobra.Command {
	opts := options.NewPortScanOptions()

	cmd := &cobra.Command{
		Use:   "port",
		Short: "端口扫描与服务识别",
		Long: `对单个目标执行端口扫描。
扫描类型: quick (常用端口), full (目前等同 quick), service (常用端口 + 服务识别), custom (--start/--end 指定范围)`,
		Example: `  neoport scan port -t 192.168.1.1
  neoport scan port -t example.com --type service --timeout 2000
  neoport scan port -t 10.0.0.5 --type custom --start 1 --end 1024 -c 200 --csv out.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			opts.Output = globalOutputOptions

			conf := cfg()
			lv := cmd.Flags().Lookup("log-level")
			initCLILogger(conf, lv != nil && lv.Changed)

			core, err := setup.SetupCore(conf)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			resp, err := core.Scanner.Scan(ctx, opts.ToRequest())
			if err != nil {
				return err
			}

			reporters := []reporter.Reporter{reporter.NewConsoleReporter(opts.OpenOnly)}
			if opts.Output.OutputJson != "" {
				reporters = append(reporters, reporter.NewJsonReporter(opts.Output.OutputJson))
			}
			if opts.Output.OutputCsv != "" {
				reporters = append(reporters, reporter.NewCsvReporter(opts.Output.OutputCsv))
			}
			return reporter.NewMultiReporter(reporters...).Report(ctx, resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", opts.Target, "扫描目标 (IP/域名)")
	flags.StringVar(&opts.ScanType, "type", opts.ScanType, "扫描类型 (quick, full, service, custom)")
	flags.IntVar(&opts.StartPort, "start", opts.StartPort, "起始端口 (custom)")
	flags.IntVar(&opts.EndPort, "end", opts.EndPort, "结束端口 (custom)")
	flags.IntVarP(&opts.Concurrency, "concurrency", "c", opts.Concurrency, "并发数")
	flags.IntVar(&opts.TimeoutMs, "timeout", opts.TimeoutMs, "单端口超时 (毫秒)")
	flags.BoolVar(&opts.OpenOnly, "open-only", opts.OpenOnly, "控制台只显示开放端口")

	cmd.MarkFlagRequired("target")

	return cmd
}
