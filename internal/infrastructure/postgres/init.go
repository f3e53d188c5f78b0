package postgres

import (
	"log"

	"github.com/LavaJover/shvark-ib-service/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MustInitDB opens the pool. Schema is owned by the migrations directory.
func MustInitDB(cfg *config.IBConfig) *gorm.DB {
	dsn := cfg.IBDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v\n", err.Error())
	}
	sqlDB.SetMaxOpenConns(cfg.IBDB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.IBDB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.IBDB.ConnMaxLifetime)

	return db
}
