/*
 * @description: Cobra Root Command 定义
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"neoport/cmd/neoport/scan"
	"neoport/internal/config"
)

var (
	cfgFile  string
	logLevel string

	// 加载后的配置与实际使用的配置文件 (未找到配置文件时为空)
	appConfig      *config.Config
	configFileUsed string
)

var rootCmd = &cobra.Command{
	Use:   "neoport",
	Short: "neoport 并发端口扫描与服务识别",
	Long: `neoport 对单个目标执行 TCP 端口扫描，识别 banner、TLS 与常见服务版本。
既可以作为 HTTP 服务运行，也可以作为命令行工具单次扫描。

示例:
  1.启动 HTTP 服务
	neoport server --config ./configs/config.yaml
  2.快速扫描
	neoport scan port -t 192.168.1.1
  3.自定义范围并导出结果
	neoport scan port -t example.com --type custom --start 1 --end 1024 --json out.json
`,
	SilenceUsage: true,
	// 所有子命令共用的初始化
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] neoport crashed unexpectedly: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (debug, info, warn, error)")

	rootCmd.AddCommand(scan.NewScanCmd(func() *config.Config { return appConfig }))
}

// initConfig 加载配置
// 显式指定的配置文件必须能加载；默认路径下没有配置文件时使用内置默认值
func initConfig() error {
	loader := config.NewConfigLoader(cfgFile, "NEOPORT")
	cfg, err := loader.LoadConfig()
	if err != nil {
		if cfgFile != "" || !config.IsConfigNotFound(err) {
			return err
		}
		cfg = config.DefaultConfig()
	} else {
		configFileUsed = loader.GetConfigPath()
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	appConfig = cfg
	return nil
}
