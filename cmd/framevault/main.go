package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pranathisri21/frame-vault/internal/config"
	"github.com/pranathisri21/frame-vault/internal/gallery"
	"github.com/pranathisri21/frame-vault/internal/identity"
	"github.com/pranathisri21/frame-vault/internal/logging"
	"github.com/pranathisri21/frame-vault/internal/mediahost"
	"github.com/pranathisri21/frame-vault/internal/router"
)

func main() {
	bootstrapLogger := logging.New(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, logFile := logging.NewWithFile(cfg.LogLevel, cfg.LogFile)
	defer logFile.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		logFile.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", "store", cfg.Store, "error", err)
		}
	}()

	host, mediaDir, err := openHost(ctx, cfg)
	if err != nil {
		return err
	}
	guarded := mediahost.NewBreaker(host, mediahost.BreakerSettings{
		Name:    "mediahost-" + cfg.MediaHost,
		Timeout: 30 * time.Second,
	}, logger)

	cleaner := mediahost.NewCleaner(guarded, logger, mediahost.CleanerOptions{Workers: cfg.CleanupWorkers})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := cleaner.Close(shutdownCtx); err != nil {
			logger.Warn("media cleanup did not drain", "error", err)
		}
	}()

	var revocations identity.Revocations
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		revocations = identity.NewRedisRevocations(client)
	}

	provider, err := identity.NewProvider(store.Users(), revocations, identity.Options{
		Secret:      cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		BcryptCost:  cfg.BcryptCost,
		AdminEmails: cfg.AdminEmails,
	}, logger)
	if err != nil {
		return err
	}
	unsubscribe := provider.Subscribe(func(change identity.Change) {
		logger.Info("identity changed", "user_id", change.Handle.UserID, "signed_in", change.SignedIn, "admin", change.Handle.Admin)
	})
	defer unsubscribe()

	repo := gallery.New(store, guarded,
		gallery.WithCleanup(cleaner),
		gallery.WithLogger(logger),
	)

	r := router.New(cfg, logger, router.Deps{
		Gallery:  repo,
		Identity: provider,
		Store:    store,
		MediaDir: mediaDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "store", cfg.Store, "media_host", cfg.MediaHost)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
