/*
 * @description: Server 模式子命令
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"neoport/internal/app/neoport"
	"neoport/internal/pkg/logger"
)

// 关闭时等待进行中请求的时间
const shutdownTimeout = 5 * time.Second

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 HTTP 服务",
	Long: `启动 HTTP 服务，提供端口扫描与扫描历史接口。

接口:
  POST   /port/scan
  POST   /portHistory/save
  GET    /portHistory/all/:userId
  DELETE /portHistory/delete/:id

示例:
  neoport server --config ./configs/config.yaml --port 5000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverPort > 0 {
			appConfig.Server.Port = serverPort
		}
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "监听端口 (覆盖配置文件)")
}

func runServer() error {
	if _, err := logger.InitLogger(appConfig.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	app, err := neoport.NewApp(context.Background(), appConfig, configFileUsed)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	errCh := app.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err, ok := <-errCh:
		if ok && err != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			app.Stop(ctx)
			return err
		}
	}
	logger.Info("Shutting down neoport server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Stop(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
