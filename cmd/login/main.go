package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/oggyb/sms-forwarder/internal/config"
	"github.com/oggyb/sms-forwarder/internal/device"
	"github.com/oggyb/sms-forwarder/internal/logger"
	"github.com/oggyb/sms-forwarder/internal/syncapi"
	"github.com/oggyb/sms-forwarder/internal/tokenstore"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	code := flag.String("code", "", "two-factor code, when the account requires one")
	logout := flag.Bool("logout", false, "revoke and forget the stored token")
	flag.Parse()

	cfg := config.New()
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr).
		With().Str("cmd", "login").Logger()

	ident, err := device.Resolve(cfg.Device.ID, cfg.Device.Name, cfg.Device.IDFile)
	if err != nil {
		log.Warn().Err(err).Msg("device id not persisted")
	}

	tokens, err := tokenstore.NewFileStore(cfg.Token.File, cfg.TokenSecret(), ident.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open token store")
	}

	api := syncapi.New(cfg.Backend.BaseURL, tokens, cfg.Backend.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *logout {
		// The local token goes even when the backend cannot be reached.
		if err := api.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("backend logout failed")
		}
		if err := tokens.Clear(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to clear token")
		}
		log.Info().Msg("logged out")
		return
	}

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	token, err := api.Login(ctx, *email, *password, *code)
	if err != nil {
		log.Fatal().Err(err).Msg("login failed")
	}
	if err := tokens.Save(ctx, token); err != nil {
		log.Fatal().Err(err).Msg("failed to store token")
	}

	log.Info().Str("device_id", ident.ID).Str("file", cfg.Token.File).Msg("logged in")
}
