package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pranathisri21/frame-vault/internal/config"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FRAMEVAULT_JWT_SECRET", secret)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Addr != ":8080" || cfg.Store != config.StoreSQLite || cfg.MediaHost != config.HostDisk {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.LogLevel)
	}
	if cfg.TokenTTL != 168*time.Hour {
		t.Fatalf("expected one week token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.MaxUploadBytes != 100<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadBytes)
	}
	if len(cfg.AdminEmails) != 0 {
		t.Fatalf("expected no admin emails, got %v", cfg.AdminEmails)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FRAMEVAULT_JWT_SECRET", secret)
	t.Setenv("FRAMEVAULT_ADDR", ":9090")
	t.Setenv("FRAMEVAULT_LOG_LEVEL", "WARNING")
	t.Setenv("FRAMEVAULT_STORE", "Bolt")
	t.Setenv("FRAMEVAULT_ADMIN_EMAILS", "owner@example.com, , editor@example.com")
	t.Setenv("FRAMEVAULT_ALLOWED_ORIGINS", "https://gallery.example.com")
	t.Setenv("FRAMEVAULT_TOKEN_TTL", "2h")
	t.Setenv("FRAMEVAULT_MAX_UPLOAD_MB", "5")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Addr != ":9090" || cfg.Store != config.StoreBolt || cfg.LogLevel != slog.LevelWarn {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.AdminEmails) != 2 || cfg.AdminEmails[1] != "editor@example.com" {
		t.Fatalf("unexpected admin emails %v", cfg.AdminEmails)
	}
	if len(cfg.AllowedOrigins) != 1 {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.TokenTTL != 2*time.Hour || cfg.MaxUploadBytes != 5<<20 {
		t.Fatalf("unexpected ttl/limit %v/%d", cfg.TokenTTL, cfg.MaxUploadBytes)
	}
}

func TestLoadFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framevault.yaml")
	content := "store: mongo\nmongo_uri: mongodb://localhost:27017\nmedia_host: s3\ns3_bucket: frames\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("FRAMEVAULT_JWT_SECRET", secret)
	t.Setenv("FRAMEVAULT_CONFIG", path)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store != config.StoreMongo || cfg.MongoURI != "mongodb://localhost:27017" {
		t.Fatalf("unexpected store config %+v", cfg)
	}
	if cfg.MediaHost != config.HostS3 || cfg.S3Bucket != "frames" {
		t.Fatalf("unexpected host config %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing secret",
			env:  map[string]string{"FRAMEVAULT_JWT_SECRET": ""},
			want: "JWT_SECRET",
		},
		{
			name: "short secret",
			env:  map[string]string{"FRAMEVAULT_JWT_SECRET": "too-short"},
			want: "JWT_SECRET",
		},
		{
			name: "unknown store",
			env:  map[string]string{"FRAMEVAULT_JWT_SECRET": secret, "FRAMEVAULT_STORE": "postgres"},
			want: "unknown store",
		},
		{
			name: "mongo without uri",
			env:  map[string]string{"FRAMEVAULT_JWT_SECRET": secret, "FRAMEVAULT_STORE": "mongo"},
			want: "MONGO_URI",
		},
		{
			name: "origin without scheme",
			env:  map[string]string{"FRAMEVAULT_JWT_SECRET": secret, "FRAMEVAULT_ALLOWED_ORIGINS": "gallery.example.com"},
			want: "ALLOWED_ORIGINS",
		},
		{
			name: "s3 without bucket",
			env:  map[string]string{"FRAMEVAULT_JWT_SECRET": secret, "FRAMEVAULT_MEDIA_HOST": "s3"},
			want: "S3_BUCKET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
