package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcfg "github.com/park285/checkers-arena/internal/config"
	"github.com/park285/checkers-arena/internal/httpapi"
	"github.com/park285/checkers-arena/internal/identity"
	"github.com/park285/checkers-arena/internal/match"
	"github.com/park285/checkers-arena/internal/msgcat"
	"github.com/park285/checkers-arena/internal/obslog"
	"github.com/park285/checkers-arena/internal/registry"
	"github.com/park285/checkers-arena/internal/render"
	"github.com/park285/checkers-arena/internal/router"
	"github.com/park285/checkers-arena/internal/wsgate"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		obslog.L().Fatal("config_error", zap.Error(err))
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ictx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	auth, closer, err := buildResolver(ictx, cfg)
	cancel()
	if err != nil {
		obslog.L().Fatal("identity_init_error", zap.String("backend", cfg.IdentityBackend), zap.Error(err))
	}
	defer func() { _ = closer.Close() }()

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		obslog.L().Fatal("messages_init_error", zap.Error(err))
	}

	hub := wsgate.NewHub(cfg.WSSendBuffer)
	coord := match.New(registry.New(), router.New(), hub, auth, msgs)
	ws := wsgate.NewServer(hub, coord, wsgate.Options{
		OriginPatterns: cfg.AllowedOrigins,
		PingInterval:   cfg.WSPingInterval,
	})
	engine := httpapi.NewRouter(coord, ws, render.NewPNGRenderer())

	// Cancelling base ends every hijacked WebSocket, which Shutdown does not track.
	base, stopConns := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	errCh := make(chan error, 1)
	go func() {
		obslog.L().Info("http_listening", zap.String("addr", cfg.HTTPAddr), zap.String("identity_backend", cfg.IdentityBackend))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		obslog.L().Info("shutdown_signal", zap.Stringer("signal", sig))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Error("http_server_error", zap.Error(err))
		}
	}

	stopConns()
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		obslog.L().Warn("http_shutdown_error", zap.Error(err))
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func buildResolver(ctx context.Context, cfg *appcfg.AppConfig) (identity.Resolver, io.Closer, error) {
	switch cfg.IdentityBackend {
	case appcfg.BackendRedis:
		r, err := identity.NewRedisResolverFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case appcfg.BackendPostgres:
		r, err := identity.NewSQLResolver(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case appcfg.BackendHTTP:
		r, err := identity.NewHTTPResolver(cfg.AuthBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return r, nopCloser{}, nil
	case appcfg.BackendStatic:
		tokens, err := identity.ParseStaticTokens(cfg.StaticTokens)
		if err != nil {
			return nil, nil, err
		}
		return identity.NewStaticResolver(tokens), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown identity backend %q", cfg.IdentityBackend)
}
