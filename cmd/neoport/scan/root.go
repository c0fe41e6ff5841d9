package scan

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neoport/internal/config"
	"neoport/internal/core/options"
	"neoport/internal/pkg/logger"
)

// ConfigProvider 由 root 命令在 PersistentPreRun 中加载的配置
type ConfigProvider func() *config.Config

var globalOutputOptions options.OutputOptions

// NewScanCmd 创建 scan 父命令
func NewScanCmd(cfg ConfigProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "执行单次扫描任务 (Standalone)",
		Long: `在不启动 HTTP 服务的情况下执行一次扫描，结果输出到控制台，可同时导出 JSON/CSV。
请使用具体的子命令。`,
	}

	pFlags := cmd.PersistentFlags()
	pFlags.StringVar(&globalOutputOptions.OutputJson, "json", "", "保存完整结果到 JSON 文件")
	pFlags.StringVar(&globalOutputOptions.OutputCsv, "csv", "", "保存结果表格到 CSV 文件")

	cmd.AddCommand(NewPortScanCmd(cfg))

	return cmd
}

// initCLILogger 命令行模式的日志
// 未指定 --log-level 时只输出错误，避免日志和结果表格混在一起
func initCLILogger(cfg *config.Config, levelChanged bool) {
	level := "error"
	if levelChanged && cfg.Log != nil && cfg.Log.Level != "" {
		level = cfg.Log.Level
	}

	if level == "debug" {
		pterm.EnableDebugMessages()
	} else {
		pterm.DisableDebugMessages()
	}

	logConfig := &config.LogConfig{
		Level:  level,
		Format: "text",
		Output: "stderr",
	}
	if _, err := logger.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
	}
}
