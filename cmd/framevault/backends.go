package main

import (
	"context"
	"fmt"

	"github.com/pranathisri21/frame-vault/internal/config"
	"github.com/pranathisri21/frame-vault/internal/mediahost"
	"github.com/pranathisri21/frame-vault/internal/mediahost/disk"
	"github.com/pranathisri21/frame-vault/internal/mediahost/s3host"
	"github.com/pranathisri21/frame-vault/internal/storage"
	"github.com/pranathisri21/frame-vault/internal/storage/bolt"
	"github.com/pranathisri21/frame-vault/internal/storage/mongo"
	"github.com/pranathisri21/frame-vault/internal/storage/sqlite"
)

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database %s: %w", cfg.DBPath, err)
		}
		return store, nil
	case config.StoreBolt:
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt database %s: %w", cfg.BoltPath, err)
		}
		return store, nil
	case config.StoreMongo:
		store, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// openHost returns the configured media host and, for the disk host, the
// directory the router should serve.
func openHost(ctx context.Context, cfg *config.Config) (mediahost.Host, string, error) {
	switch cfg.MediaHost {
	case config.HostDisk:
		host, err := disk.New(cfg.MediaDir, cfg.MediaBaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("open media directory %s: %w", cfg.MediaDir, err)
		}
		return host, host.Dir(), nil
	case config.HostS3:
		host, err := s3host.New(ctx, s3host.Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return host, "", nil
	default:
		return nil, "", fmt.Errorf("unknown media host %q", cfg.MediaHost)
	}
}
