// cmd/server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Corphon/Chronicle/internal/app"
	"github.com/Corphon/Chronicle/internal/config"
	"github.com/Corphon/Chronicle/internal/utils"
)

func main() {
	logger := utils.GetLogger()
	logger.Infof("🚀 启动 Chronicle 服务器...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("加载配置失败", map[string]interface{}{"error": err.Error()})
	}
	logger.Infof("✅ 配置加载完成，端口: %s", cfg.Port)

	application, err := app.New(cfg)
	if err != nil {
		logger.Fatalf("初始化应用失败: %v", err)
	}
	defer application.Cleanup()

	logger.Infof("🔗 访问地址: http://localhost:%s", cfg.Port)

	// 等待中断信号以进行优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Errorf("❌ 服务器错误: %v", err)
		application.Cleanup()
		os.Exit(1)
	}
	logger.Infof("✅ 服务器已关闭")
}
