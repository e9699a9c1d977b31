package repo

import (
	"context"

	"zhuoji-service/internal/config"
	"zhuoji-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RDB stays nil when redis is disabled; the ledger then relies on row
// locks alone.
var RDB *redis.Client

func InitRedis() {
	conf := config.GlobalConfig.Redis
	if !conf.Enabled {
		logger.Log.Info("Redis disabled, append locks fall back to the database")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	_, err := RDB.Ping(context.Background()).Result()
	if err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
}
