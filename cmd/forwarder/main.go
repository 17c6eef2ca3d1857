package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/sms-forwarder/internal/cache"
	"github.com/oggyb/sms-forwarder/internal/cache/redis"
	"github.com/oggyb/sms-forwarder/internal/config"
	"github.com/oggyb/sms-forwarder/internal/db/gormdb"
	"github.com/oggyb/sms-forwarder/internal/device"
	domain "github.com/oggyb/sms-forwarder/internal/domain/message"
	"github.com/oggyb/sms-forwarder/internal/forwarder"
	"github.com/oggyb/sms-forwarder/internal/handler"
	"github.com/oggyb/sms-forwarder/internal/logger"
	"github.com/oggyb/sms-forwarder/internal/metrics"
	"github.com/oggyb/sms-forwarder/internal/realtime"
	deliveryRepo "github.com/oggyb/sms-forwarder/internal/repository/gorm/delivery"
	"github.com/oggyb/sms-forwarder/internal/retry"
	routes "github.com/oggyb/sms-forwarder/internal/router"
	"github.com/oggyb/sms-forwarder/internal/scheduler"
	"github.com/oggyb/sms-forwarder/internal/server"
	"github.com/oggyb/sms-forwarder/internal/service"
	"github.com/oggyb/sms-forwarder/internal/sms"
	"github.com/oggyb/sms-forwarder/internal/syncapi"
	"github.com/oggyb/sms-forwarder/internal/tokenstore"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title       SMS Forwarder API
// @version     1.0
// @description Local control API for the device-side SMS forwarder.
// @BasePath    /
func main() {
	// Base context for the whole application lifetime.
	rootCtx := context.Background()

	// Load configuration from environment/.env.
	cfg := config.New()

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout).
		With().Str("app", cfg.App.Name).Logger()

	// Device identity.
	ident, err := device.Resolve(cfg.Device.ID, cfg.Device.Name, cfg.Device.IDFile)
	if err != nil {
		log.Warn().Err(err).Str("device_id", ident.ID).Msg("device id not persisted")
	}
	log.Info().Str("device_id", ident.ID).Str("device_name", ident.Name).Msg("device identity resolved")

	// Token store gates every sync activity.
	tokens, err := tokenstore.NewFileStore(cfg.Token.File, cfg.TokenSecret(), ident.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open token store")
	}

	// Backend and SMS gateway clients.
	api := syncapi.New(cfg.Backend.BaseURL, tokens, cfg.Backend.Timeout)
	messenger := sms.NewWebhookMessenger(cfg.SMS.ProviderURL, cfg.SMS.ProviderKey, cfg.SMS.Timeout)

	// Optional cache.
	var c cache.Cache
	if cfg.CacheEnabled() {
		rc := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rc.Ping(rootCtx); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rc.Close()
		c = rc
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis cache enabled")
	}

	// Optional delivery journal.
	var journal domain.DeliveryRepository
	if cfg.JournalEnabled() {
		db, err := gormdb.New(cfg.PostgresDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect db")
		}
		defer db.Close()
		journal = deliveryRepo.NewRepository(db)
		log.Info().Str("db", cfg.DB.Name).Msg("delivery journal enabled")
	}

	m := metrics.New()

	syncer := service.NewSyncer(api, messenger, tokens, service.Options{
		Journal:         journal,
		Cache:           c,
		Metrics:         m,
		PoisonThreshold: cfg.Forwarding.PoisonThreshold,
		Logger:          log,
	})

	// Polling trigger.
	cron := scheduler.NewSchedulerService(cfg.Forwarding.PollInterval, log)
	defer cron.Close()

	opts := forwarder.Options{
		Polling:     forwarder.NewPollingTrigger(cron),
		QueuedEvent: cfg.Reverb.QueuedEvent,
		PassTimeout: cfg.Forwarding.PassTimeout,
		Metrics:     m,
		Logger:      log,
	}

	// Realtime channel, shared by every trigger.
	var provider *realtime.Provider
	if cfg.RealtimeEnabled() {
		rtCfg := realtime.Config{
			Scheme: cfg.Reverb.Scheme,
			Host:   cfg.Reverb.Host,
			Port:   cfg.Reverb.Port,
			AppKey: cfg.Reverb.AppKey,
		}
		policy := retry.DefaultPolicy
		policy.Attempts = cfg.Reverb.DialAttempts
		provider = realtime.NewProvider(tokens, realtime.NewDialFunc(rtCfg, api, policy, log), log)
		opts.Channels = forwarder.RealtimeChannels(provider)
		log.Info().Str("url", rtCfg.URL()).Msg("realtime enabled")
	} else {
		log.Info().Msg("realtime disabled, forwarding will poll")
	}

	engine := forwarder.New(syncer, opts)

	// HTTP dependencies & server wiring.
	deps := routes.AppDeps{
		Home:       handler.NewHomeHandler(syncer, version),
		Forwarding: handler.NewForwardingHandler(engine, ident, journal, api),
		Metrics:    m.Handler(),
	}

	addr := fmt.Sprintf("%s:%s", cfg.API.Host, cfg.API.Port)
	srv := server.New(addr, deps, log)

	// Create a context that is cancelled on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	if cfg.Forwarding.AutoStart {
		if !syncer.HasToken(ctx) {
			log.Warn().Msg("auto start skipped: not logged in")
		} else if err := engine.Apply(ctx, forwarder.Activation{
			Active:     true,
			DeviceID:   ident.ID,
			DeviceName: ident.Name,
		}); err != nil {
			log.Error().Err(err).Msg("auto start failed")
		}
	}

	// Block until we receive a shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop the engine first so no new pass starts, then wait for the one in flight.
	if err := engine.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("in-flight pass did not finish in time")
	}
	if provider != nil {
		provider.Disconnect()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server graceful shutdown failed")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	log.Info().Msg("shutdown complete")
}
