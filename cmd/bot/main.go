// Package main is the entry point for the FitRPG bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"fitrpg-bot/internal/bot"
	"fitrpg-bot/internal/config"
	"fitrpg-bot/internal/notify"
	"fitrpg-bot/internal/pkg/db"
	"fitrpg-bot/internal/pkg/lock"
	"fitrpg-bot/internal/repository"
	"fitrpg-bot/internal/service"
	"fitrpg-bot/internal/store"
)

const connectAttempts = 5

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil && cfg.Log.Level != "" {
		zerolog.SetGlobalLevel(level)
	}
	log.Info().Str("storage", cfg.Storage.Driver).Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStorage()

	client, err := bot.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}

	opts := service.OptionsFromConfig(cfg)
	opts.Gateway = gateway
	opts.Notifier = notify.Multi{notify.NewLogNotifier(), bot.NewTelegramNotifier(client)}
	engine := service.NewEngine(opts)
	if err := engine.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load engine state")
	}

	telegramBot := bot.New(client, &bot.Dependencies{
		Config:   cfg,
		Engine:   engine,
		UserLock: lock.NewUserLock(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.RunPersistence(gctx)
	})
	g.Go(func() error {
		return engine.RunExpiry(gctx, cfg.Engine.ExpiryInterval)
	})
	g.Go(func() error {
		telegramBot.Start()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Received shutdown signal")
		telegramBot.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Background task failed")
	}

	// commands handled while the poller drained may still be pending
	fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := engine.Flush(fctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush state")
	}
	log.Info().Msg("Bot stopped gracefully")
}

// openStorage returns the state gateway selected by storage.driver and a
// function that releases it.
func openStorage(ctx context.Context, cfg *config.Config) (store.Gateway, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database, connectAttempts)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresStateRepository(pool, cfg.Storage.Scope)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil

	case config.DriverSQLite:
		repo, err := repository.OpenSQLite(ctx, cfg.Storage.SQLitePath, cfg.Storage.Scope)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close sqlite database")
			}
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
		return store.NewMemoryGateway(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
