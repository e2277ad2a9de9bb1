package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Identity backends.
const (
	BackendRedis    = "redis"
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
	BackendStatic   = "static"
)

type AppConfig struct {
	HTTPAddr string
	GinMode  string

	IdentityBackend string
	RedisURL        string
	AuthBaseURL     string
	DatabaseURL     string
	StaticTokens    string

	AllowedOrigins []string
	MessagesDir    string

	WSSendBuffer   int
	WSPingInterval time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8080",
		IdentityBackend: BackendRedis,
		WSSendBuffer:    64,
		WSPingInterval:  15 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.GinMode = strings.TrimSpace(os.Getenv("GIN_MODE"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("IDENTITY_BACKEND"))); v != "" {
		cfg.IdentityBackend = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.AuthBaseURL = strings.TrimSpace(os.Getenv("AUTH_BASE_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.StaticTokens = strings.TrimSpace(os.Getenv("STATIC_TOKENS"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("WS_SEND_BUFFER")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSSendBuffer = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_PING_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSPingInterval = time.Duration(n) * time.Second
		}
	}

	switch cfg.IdentityBackend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis identity backend")
		}
	case BackendHTTP:
		if cfg.AuthBaseURL == "" {
			return nil, errors.New("AUTH_BASE_URL is required for the http identity backend")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres identity backend")
		}
	case BackendStatic:
		if cfg.StaticTokens == "" {
			return nil, errors.New("STATIC_TOKENS is required for the static identity backend")
		}
	default:
		return nil, fmt.Errorf("unknown IDENTITY_BACKEND %q", cfg.IdentityBackend)
	}

	return cfg, nil
}
