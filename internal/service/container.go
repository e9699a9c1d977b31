package service

import (
	"zhuoji-service/internal/service/ledger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Ledger *ledger.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client, ledgerCfg ledger.Config) *Container {
	return &Container{
		Ledger: ledger.NewService(db, rdb, ledgerCfg),
	}
}
