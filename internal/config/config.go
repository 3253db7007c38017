package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Mail     MailConfig     `mapstructure:"mail"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port                  int           `mapstructure:"port"`
	BaseURL               string        `mapstructure:"base_url"`
	PageSize              int           `mapstructure:"page_size"`
	MaxUploadBytes        int64         `mapstructure:"max_upload_bytes"`
	CookieName            string        `mapstructure:"cookie_name"`
	CookieSecure          bool          `mapstructure:"cookie_secure"`
	CookieDomain          string        `mapstructure:"cookie_domain"`
	LoginRateLimitPerHour int           `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int           `mapstructure:"login_lock_threshold"`
	LoginLockTTL          time.Duration `mapstructure:"login_lock_ttl"`
	AllowedOrigins        []string      `mapstructure:"allowed_origins"`
	MetricsToken          string        `mapstructure:"metrics_token"`
}

// AuthConfig 包含会话令牌配置。
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig 决定房源图片的存放位置。
type StorageConfig struct {
	Driver   string `mapstructure:"driver"` // minio | disk
	DiskPath string `mapstructure:"disk_path"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// ClamdConfig 指向可选的 clamd 守护进程，地址为空时不扫描。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// MailConfig 包含 worker 使用的 SMTP 投递配置。
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// WorkerConfig 包含后台任务配置。
type WorkerConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	SweepCron        string        `mapstructure:"sweep_cron"`
	SweepGracePeriod time.Duration `mapstructure:"sweep_grace_period"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load 从环境变量读取配置（支持默认值）。
// 工作目录下存在 .env 文件时一并加载。
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API.AllowedOrigins = splitList(cfg.API.AllowedOrigins)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.page_size", 10)
	v.SetDefault("api.max_upload_bytes", 5<<20)
	v.SetDefault("api.cookie_name", "_token")
	v.SetDefault("api.cookie_secure", false)
	v.SetDefault("api.login_rate_limit_per_hour", 10)
	v.SetDefault("api.login_lock_threshold", 5)
	v.SetDefault("api.login_lock_ttl", 15*time.Minute)
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "realestate")
	v.SetDefault("database.user", "realestate")
	v.SetDefault("database.password", "realestate")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("storage.driver", "disk")
	v.SetDefault("storage.disk_path", "public/uploads")
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "listings")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "no-reply@realestate.local")
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.sweep_cron", "@every 6h")
	v.SetDefault("worker.sweep_grace_period", 24*time.Hour)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                      "API_PORT",
		"api.base_url":                  "API_BASE_URL",
		"api.page_size":                 "API_PAGE_SIZE",
		"api.max_upload_bytes":          "API_MAX_UPLOAD_BYTES",
		"api.cookie_name":               "COOKIE_NAME",
		"api.cookie_secure":             "COOKIE_SECURE",
		"api.cookie_domain":             "COOKIE_DOMAIN",
		"api.login_rate_limit_per_hour": "LOGIN_RATE_LIMIT_PER_HOUR",
		"api.login_lock_threshold":      "LOGIN_LOCK_THRESHOLD",
		"api.login_lock_ttl":            "LOGIN_LOCK_TTL",
		"api.allowed_origins":           "WS_ALLOWED_ORIGINS",
		"api.metrics_token":             "METRICS_TOKEN",
		"auth.jwt_secret":               "JWT_SECRET",
		"auth.session_ttl":              "SESSION_TTL",
		"database.host":                 "DATABASE_HOST",
		"database.port":                 "DATABASE_PORT",
		"database.name":                 "POSTGRES_DB",
		"database.user":                 "POSTGRES_USER",
		"database.password":             "POSTGRES_PASSWORD",
		"database.sslmode":              "DATABASE_SSLMODE",
		"redis.host":                    "REDIS_HOST",
		"redis.port":                    "REDIS_PORT",
		"storage.driver":                "STORAGE_DRIVER",
		"storage.disk_path":             "STORAGE_DISK_PATH",
		"minio.endpoint":                "MINIO_ENDPOINT",
		"minio.public_endpoint":         "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":           "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":       "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                 "MINIO_USE_SSL",
		"minio.bucket":                  "MINIO_BUCKET",
		"minio.region":                  "MINIO_REGION",
		"minio.bucket_lookup":           "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":      "MINIO_AUTO_CREATE_BUCKET",
		"clamd.addr":                    "CLAMD_ADDR",
		"mail.host":                     "SMTP_HOST",
		"mail.port":                     "SMTP_PORT",
		"mail.user":                     "SMTP_USER",
		"mail.password":                 "SMTP_PASSWORD",
		"mail.from":                     "MAIL_FROM",
		"worker.concurrency":            "WORKER_CONCURRENCY",
		"worker.sweep_cron":             "WORKER_SWEEP_CRON",
		"worker.sweep_grace_period":     "WORKER_SWEEP_GRACE_PERIOD",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

// splitList 拆分单个环境变量中以逗号分隔的条目。
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.PageSize <= 0 {
		return errors.New("api page size must be positive")
	}
	if cfg.API.MaxUploadBytes <= 0 {
		return errors.New("api max upload bytes must be positive")
	}
	if cfg.API.CookieName == "" {
		return errors.New("cookie name is required")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		return errors.New("jwt secret must be at least 16 characters")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	switch cfg.Storage.Driver {
	case "disk":
		if cfg.Storage.DiskPath == "" {
			return errors.New("storage disk path is required")
		}
	case "minio":
		if cfg.MinIO.Endpoint == "" {
			return errors.New("minio endpoint is required")
		}
		if cfg.MinIO.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if cfg.MinIO.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
		if cfg.MinIO.Bucket == "" {
			return errors.New("minio bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return nil
}
