package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IDENTITY_BACKEND", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("WS_SEND_BUFFER", "")
	t.Setenv("WS_PING_INTERVAL_SEC", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.IdentityBackend != BackendRedis {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.WSSendBuffer != 64 || cfg.WSPingInterval != 15*time.Second {
		t.Fatalf("ws defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IDENTITY_BACKEND", "Static")
	t.Setenv("STATIC_TOKENS", "t1=alice")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("ALLOWED_ORIGINS", "example.com, , localhost:3000")
	t.Setenv("WS_SEND_BUFFER", "8")
	t.Setenv("WS_PING_INTERVAL_SEC", "bogus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IdentityBackend != BackendStatic || cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("overrides: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "localhost:3000" {
		t.Fatalf("origins: %v", cfg.AllowedOrigins)
	}
	if cfg.WSSendBuffer != 8 || cfg.WSPingInterval != 15*time.Second {
		t.Fatalf("ws: %+v", cfg)
	}
}

func TestBackendRequirements(t *testing.T) {
	cases := map[string]string{
		BackendRedis:    "REDIS_URL",
		BackendHTTP:     "AUTH_BASE_URL",
		BackendPostgres: "DATABASE_URL",
		BackendStatic:   "STATIC_TOKENS",
	}
	for backend, envVar := range cases {
		t.Setenv("IDENTITY_BACKEND", backend)
		for _, v := range []string{"REDIS_URL", "AUTH_BASE_URL", "DATABASE_URL", "STATIC_TOKENS"} {
			t.Setenv(v, "")
		}
		if _, err := Load(); err == nil {
			t.Fatalf("%s backend without %s should fail", backend, envVar)
		}
	}
	t.Setenv("IDENTITY_BACKEND", "ldap")
	if _, err := Load(); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}
