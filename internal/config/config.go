package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables the gRPC listener

	Env string `yaml:"env"` // "dev" | "prod"

	// Storage
	StoreBackend string `yaml:"store_backend"` // "sqlite" | "memory"
	CacheBackend string `yaml:"cache_backend"` // "store" | "redis"
	DBPath       string `yaml:"db_path"`
	RedisURL     string `yaml:"redis_url"`

	// Consumer auth
	JWTSecret string `yaml:"jwt_secret"`

	Log LogConfig `yaml:"log"`

	// Event fan-out; empty broker disables it.
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`

	Influx InfluxConfig `yaml:"influx"`

	// Heartbeat retention
	HeartbeatRetentionDays int `yaml:"heartbeat_retention_days"` // 0 = keep forever
	PruneIntervalHours     int `yaml:"prune_interval_hours"`     // how often the pruner runs (default 6)

	DashboardPollSeconds int `yaml:"dashboard_poll_seconds"`

	// DevAccountID owns the demo data seeded in dev.
	DevAccountID int64 `yaml:"dev_account_id"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" | "console"
}

type InfluxConfig struct {
	URL    string `yaml:"url"` // empty disables heartbeat telemetry
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func defaults() Config {
	return Config{
		HTTPAddr:               ":8080",
		GRPCAddr:               ":9090",
		Env:                    "dev",
		StoreBackend:           "sqlite",
		CacheBackend:           "store",
		DBPath:                 "./data/portunus.db",
		Log:                    LogConfig{Level: "info", Format: "json"},
		MQTTClientID:           "portunus-server",
		HeartbeatRetentionDays: 30,
		PruneIntervalHours:     6,
		DashboardPollSeconds:   5,
		DevAccountID:           1,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// PORTUNUS_CONFIG, then a .env file (PORTUNUS_DOTENV, default ".env"), then
// PORTUNUS_* environment variables.  Later layers win.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("PORTUNUS_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(getenvDefault("PORTUNUS_DOTENV", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	applyEnv(&cfg)
	normalise(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("PORTUNUS_HTTP_ADDR", cfg.HTTPAddr)
	if v, ok := os.LookupEnv("PORTUNUS_GRPC_ADDR"); ok {
		cfg.GRPCAddr = strings.TrimSpace(v)
	}
	cfg.Env = getenvDefault("PORTUNUS_ENV", cfg.Env)
	cfg.StoreBackend = getenvDefault("PORTUNUS_STORE", cfg.StoreBackend)
	cfg.CacheBackend = getenvDefault("PORTUNUS_CACHE", cfg.CacheBackend)
	cfg.DBPath = getenvDefault("PORTUNUS_DB_PATH", cfg.DBPath)
	cfg.RedisURL = getenvDefault("PORTUNUS_REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = getenvDefault("PORTUNUS_JWT_SECRET", cfg.JWTSecret)
	cfg.Log.Level = getenvDefault("PORTUNUS_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("PORTUNUS_LOG_FORMAT", cfg.Log.Format)
	cfg.MQTTBroker = getenvDefault("PORTUNUS_MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTClientID = getenvDefault("PORTUNUS_MQTT_CLIENT_ID", cfg.MQTTClientID)
	cfg.Influx.URL = getenvDefault("PORTUNUS_INFLUX_URL", cfg.Influx.URL)
	cfg.Influx.Token = getenvDefault("PORTUNUS_INFLUX_TOKEN", cfg.Influx.Token)
	cfg.Influx.Org = getenvDefault("PORTUNUS_INFLUX_ORG", cfg.Influx.Org)
	cfg.Influx.Bucket = getenvDefault("PORTUNUS_INFLUX_BUCKET", cfg.Influx.Bucket)

	cfg.HeartbeatRetentionDays = getenvInt("PORTUNUS_HEARTBEAT_RETENTION_DAYS", cfg.HeartbeatRetentionDays)
	cfg.PruneIntervalHours = getenvInt("PORTUNUS_PRUNE_INTERVAL_HOURS", cfg.PruneIntervalHours)
	cfg.DashboardPollSeconds = getenvInt("PORTUNUS_DASHBOARD_POLL_SECONDS", cfg.DashboardPollSeconds)
	cfg.DevAccountID = int64(getenvInt("PORTUNUS_DEV_ACCOUNT_ID", int(cfg.DevAccountID)))
}

// normalise fails soft: unknown enum values fall back to the default.
func normalise(cfg *Config) {
	def := defaults()

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env != "dev" && cfg.Env != "prod" {
		cfg.Env = def.Env
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if cfg.StoreBackend != "sqlite" && cfg.StoreBackend != "memory" {
		cfg.StoreBackend = def.StoreBackend
	}
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	if cfg.CacheBackend != "store" && cfg.CacheBackend != "redis" {
		cfg.CacheBackend = def.CacheBackend
	}
	if cfg.HeartbeatRetentionDays < 0 {
		cfg.HeartbeatRetentionDays = def.HeartbeatRetentionDays
	}
	if cfg.PruneIntervalHours <= 0 {
		cfg.PruneIntervalHours = def.PruneIntervalHours
	}
	if cfg.DashboardPollSeconds <= 0 {
		cfg.DashboardPollSeconds = def.DashboardPollSeconds
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: http_addr is required")
	}
	if c.CacheBackend == "redis" && strings.TrimSpace(c.RedisURL) == "" {
		return errors.New("config: redis cache selected without redis_url")
	}
	if c.Env == "prod" && strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: jwt_secret is required in prod")
	}
	if c.Env == "prod" && c.StoreBackend == "memory" {
		return errors.New("config: memory store is dev only")
	}
	return nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
