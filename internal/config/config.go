package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr     string
	PostgresDSN    string
	RedisAddr      string
	KafkaBrokers   []string
	JWTSecret      string
	AdminIDs       []int64
	AdminTokenHash string
	GatewayURL     string
	GatewayAPIKey  string
	GatewayTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		ListenAddr:     os.Getenv("LISTEN_ADDR"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   []string{os.Getenv("KAFKA_BROKER")},
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AdminIDs:       parseAdminIDs(os.Getenv("ADMINS")),
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		GatewayURL:     os.Getenv("GATEWAY_PIX_URL"),
		GatewayAPIKey:  os.Getenv("GATEWAY_API_KEY"),
		GatewayTimeout: parseTimeout(os.Getenv("GATEWAY_TIMEOUT")),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=rcstore sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
	}

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"gateway_url", cfg.GatewayURL,
		"admins", len(cfg.AdminIDs))
	return cfg
}

func parseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("skipping invalid admin id", "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseTimeout(raw string) time.Duration {
	if raw == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid gateway timeout, using default", "value", raw)
		return 10 * time.Second
	}
	return d
}
