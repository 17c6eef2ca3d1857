package main

import (
	"os"

	"gorm.io/gorm"

	"github.com/oggyb/sms-forwarder/internal/config"
	"github.com/oggyb/sms-forwarder/internal/db/gormdb"
	"github.com/oggyb/sms-forwarder/internal/logger"
	deliveryRepo "github.com/oggyb/sms-forwarder/internal/repository/gorm/delivery"
)

func main() {
	// Load application configuration from env/.env.
	cfg := config.New()
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout).
		With().Str("cmd", "migrate").Logger()

	if !cfg.JournalEnabled() {
		log.Fatal().Msg("DB_HOST is not set, nothing to migrate")
	}

	// Open a Postgres connection through our GORM adapter.
	gormAdapter, err := gormdb.New(cfg.PostgresDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer gormAdapter.Close()

	log.Info().Str("db", cfg.DB.Name).Msg("connected to database")

	// AutoMigrate goes through the underlying *gorm.DB.
	rawDB := gormAdapter.Conn().(*gorm.DB)

	if err := rawDB.AutoMigrate(&deliveryRepo.DeliveryModel{}); err != nil {
		log.Fatal().Err(err).Msg("AutoMigrate failed")
	}
	log.Info().Msg("deliveries table is up to date")
}
