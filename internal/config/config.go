package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "FRAMEVAULT"

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
	StoreMongo  = "mongo"
)

// Media hosts.
const (
	HostDisk = "disk"
	HostS3   = "s3"
)

type Config struct {
	Addr     string
	LogLevel slog.Level
	LogFile  string

	Store         string
	DBPath        string
	BoltPath      string
	MongoURI      string
	MongoDatabase string

	MediaHost       string
	MediaDir        string
	MediaBaseURL    string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string
	MaxUploadBytes  int64
	CleanupWorkers  int

	JWTSecret       string
	TokenTTL        time.Duration
	BcryptCost      int
	AdminEmails     []string
	SessionCookie   string
	SignInPerMinute int

	AllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads .env (if present), an optional config file named by
// FRAMEVAULT_CONFIG, and FRAMEVAULT_* environment variables, in increasing
// order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := strings.TrimSpace(v.GetString("config")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Addr:     getString(v, "addr"),
		LogLevel: getLogLevel(v, "log_level", slog.LevelInfo),
		LogFile:  getString(v, "log_file"),

		Store:         strings.ToLower(getString(v, "store")),
		DBPath:        getString(v, "db_path"),
		BoltPath:      getString(v, "bolt_path"),
		MongoURI:      getString(v, "mongo_uri"),
		MongoDatabase: getString(v, "mongo_database"),

		MediaHost:       strings.ToLower(getString(v, "media_host")),
		MediaDir:        getString(v, "media_dir"),
		MediaBaseURL:    getString(v, "media_base_url"),
		S3Bucket:        getString(v, "s3_bucket"),
		S3Region:        getString(v, "s3_region"),
		S3Endpoint:      getString(v, "s3_endpoint"),
		S3PublicBaseURL: getString(v, "s3_public_base_url"),
		MaxUploadBytes:  v.GetInt64("max_upload_mb") << 20,
		CleanupWorkers:  v.GetInt("cleanup_workers"),

		JWTSecret:       getString(v, "jwt_secret"),
		TokenTTL:        v.GetDuration("token_ttl"),
		BcryptCost:      v.GetInt("bcrypt_cost"),
		AdminEmails:     getList(v, "admin_emails"),
		SessionCookie:   getString(v, "session_cookie"),
		SignInPerMinute: v.GetInt("signin_per_minute"),

		AllowedOrigins: getList(v, "allowed_origins"),

		RedisAddr:     getString(v, "redis_addr"),
		RedisPassword: getString(v, "redis_password"),
		RedisDB:       v.GetInt("redis_db"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("db_path", "data/framevault.db")
	v.SetDefault("bolt_path", "data/framevault.bolt")
	v.SetDefault("mongo_database", "framevault")
	v.SetDefault("media_host", HostDisk)
	v.SetDefault("media_dir", "data/media")
	v.SetDefault("media_base_url", "/media")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("max_upload_mb", 100)
	v.SetDefault("cleanup_workers", 2)
	v.SetDefault("token_ttl", "168h")
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("session_cookie", "framevault_session")
	v.SetDefault("signin_per_minute", 10)
	v.SetDefault("redis_db", 0)

	// Registered so AutomaticEnv picks them up through GetString.
	for _, key := range []string{"config", "log_file", "mongo_uri", "s3_bucket", "s3_endpoint",
		"s3_public_base_url", "jwt_secret", "admin_emails", "allowed_origins", "redis_addr", "redis_password"} {
		v.SetDefault(key, "")
	}
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%s_JWT_SECRET must be set to at least 32 characters", envPrefix)
	}

	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("%s_DB_PATH must be set for the sqlite store", envPrefix)
		}
	case StoreBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("%s_BOLT_PATH must be set for the bolt store", envPrefix)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%s_MONGO_URI must be set for the mongo store", envPrefix)
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	switch c.MediaHost {
	case HostDisk:
		if c.MediaDir == "" {
			return fmt.Errorf("%s_MEDIA_DIR must be set for the disk media host", envPrefix)
		}
	case HostS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("%s_S3_BUCKET must be set for the s3 media host", envPrefix)
		}
	default:
		return fmt.Errorf("unknown media host %q", c.MediaHost)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("%s_TOKEN_TTL must be positive", envPrefix)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%s_MAX_UPLOAD_MB must be positive", envPrefix)
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" && len(c.AllowedOrigins) == 1 {
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("%s_ALLOWED_ORIGINS: %q must start with http:// or https://", envPrefix, origin)
		}
	}
	return nil
}

func getString(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func getList(v *viper.Viper, key string) []string {
	var out []string
	for _, part := range strings.Split(v.GetString(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getLogLevel(v *viper.Viper, key string, fallback slog.Level) slog.Level {
	value := strings.TrimSpace(strings.ToLower(v.GetString(key)))
	switch value {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
