package main

import (
	"flag"
	"fmt"

	"zhuoji-service/internal/api"
	"zhuoji-service/internal/config"
	"zhuoji-service/internal/repo"
	"zhuoji-service/internal/service"
	"zhuoji-service/internal/service/ledger"
	"zhuoji-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	config.LoadConfig(configPath)
	cfg := config.GlobalConfig

	// 2. Init Logger
	logger.InitLogger(cfg.Server.Mode)
	defer logger.Log.Sync()

	logger.Log.Info("Starting server...", zap.String("mode", cfg.Server.Mode))

	// 3. Init DB & Redis
	repo.InitDB()
	repo.InitRedis()

	// 4. Init Services
	rules, opts, err := cfg.Rules.Settle()
	if err != nil {
		logger.Log.Fatal("invalid rules config", zap.Error(err))
	}
	services := service.NewContainer(repo.DB, repo.RDB, ledger.Config{
		AppendLockTTL: cfg.Ledger.AppendLockTTL,
		JoinCodeLen:   cfg.Ledger.JoinCodeLen,
		Rules:         rules,
		Options:       opts,
	})

	// 5. Init Router
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	api.RegisterRoutes(r, services)

	// 6. Start Server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
