package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/signaldesk-ledger/internal/app"
	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	envAdminUsername = "SDL_DEFAULT_ADMIN_USERNAME"
	envAdminPassword = "SDL_DEFAULT_ADMIN_PASSWORD"
	minSecretLength  = 32
)

var weakSecretMarkers = []string{"change-me", "change-in-production", "your-secret-key"}

func main() {
	mode := flag.String("mode", app.ModeAll, "启动模式: all | api | worker")
	flag.Parse()

	printBanner(*mode)
	if err := run(*mode); err != nil {
		logger.StdLogger().Fatalf("服务运行失败: %v", err)
	}
}

func run(mode string) error {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	release := cfg.Server.Mode == "release"

	if isWeakSecret(cfg.JWT.SecretKey) {
		if release {
			return errors.New("JWT secret 过弱或仍为默认值，生产环境必须配置强随机密钥")
		}
		logger.Warnw("jwt_secret_weak", "hint", "生产环境请更换为至少 32 位的随机密钥")
	}

	if err := models.InitDB(cfg.Database); err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	ensureDefaultAdmin(release)

	if release {
		gin.SetMode(gin.ReleaseMode)
	}
	return app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
}

// ensureDefaultAdmin 生产环境未提供密码时不创建默认管理员
func ensureDefaultAdmin(release bool) {
	username := os.Getenv(envAdminUsername)
	password := os.Getenv(envAdminPassword)
	if release && password == "" {
		logger.Warnw("default_admin_skipped", "reason", envAdminPassword+" not set")
		return
	}
	if err := models.InitDefaultAdmin(username, password); err != nil {
		logger.Warnw("default_admin_init_failed", "error", err)
	}
}

func isWeakSecret(secret string) bool {
	if len(secret) < minSecretLength {
		return true
	}
	lower := strings.ToLower(secret)
	for _, marker := range weakSecretMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func printBanner(mode string) {
	const (
		reset = "\033[0m"
		bold  = "\033[1m"
		dim   = "\033[2m"
		cyan  = "\033[36m"
		green = "\033[32m"
	)
	lines := []string{
		"███████╗██████╗ ██╗     ",
		"██╔════╝██╔══██╗██║     ",
		"███████╗██║  ██║██║     ",
		"╚════██║██║  ██║██║     ",
		"███████║██████╔╝███████╗",
		"╚══════╝╚═════╝ ╚══════╝",
	}
	for _, line := range lines {
		fmt.Println(cyan + line + reset)
	}
	fmt.Println(green + bold + "SignalDesk Ledger · 账本 / 义务 / 推广佣金" + reset)
	fmt.Printf("%smode=%s  admin=/api/v1/admin  health=/health%s\n", dim, mode, reset)
}
