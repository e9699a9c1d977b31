package repo

import (
	"fmt"
	"log"
	"strings"

	"zhuoji-service/internal/config"
	"zhuoji-service/internal/model"
	"zhuoji-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Models lists every table the service owns.
func Models() []interface{} {
	return []interface{}{
		&model.Session{},
		&model.HandRecord{},
		&model.Standing{},
		&model.TransferLog{},
	}
}

func dialector(conf config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(conf.Driver) {
	case "", "postgres", "postgresql":
		return postgres.Open(conf.DSN), nil
	case "mysql":
		return mysql.Open(conf.DSN), nil
	case "sqlite", "sqlite3":
		return sqlite.Open(conf.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}
}

func InitDB() {
	conf := config.GlobalConfig.Database
	dial, err := dialector(conf)
	if err != nil {
		logger.Log.Fatal("Invalid database config", zap.Error(err))
	}
	DB, err = gorm.Open(dial, &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.String("driver", conf.Driver),
			zap.Error(err),
		)
	}

	if err := DB.AutoMigrate(Models()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
