package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEll3n/ups-server/internal/admin"
	"github.com/MrEll3n/ups-server/internal/dependencies/clock"
	"github.com/MrEll3n/ups-server/internal/dependencies/random"
	"github.com/MrEll3n/ups-server/internal/server"
	"github.com/MrEll3n/ups-server/internal/services/liveness"
	"github.com/MrEll3n/ups-server/internal/services/registry"
	"github.com/MrEll3n/ups-server/internal/services/session"
	"github.com/MrEll3n/ups-server/internal/storage"
	"github.com/MrEll3n/ups-server/internal/storage/memory"
	redisstorage "github.com/MrEll3n/ups-server/internal/storage/redis"
)

// stats combines the registry counters with the live connection count
// for the admin endpoint
type stats struct {
	registry *registry.Controller
	server   *server.Server
}

func (s *stats) Stats(ctx context.Context) (int, int, error) {
	return s.registry.Stats(ctx)
}

func (s *stats) Connections() int {
	return s.server.Connections()
}

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Select the storage backend from the environment
	var store storage.Storage
	switch os.Getenv("STORAGE_TYPE") {
	case "", "memory":
		store = memory.New()
	case "redis":
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Error("REDIS_URL required when STORAGE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			logger.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	default:
		logger.Error("unknown STORAGE_TYPE", slog.String("value", os.Getenv("STORAGE_TYPE")))
		os.Exit(1)
	}

	clk := clock.New()
	rnd := random.New()

	reg := registry.NewController(store, clk, logger)
	resolver := session.NewResolver(reg)
	live := liveness.NewService(liveness.DefaultConfig(), store, clk, rnd, logger)

	srvCfg := server.DefaultConfig()
	if addr := os.Getenv("UPS_ADDR"); addr != "" {
		srvCfg.Addr = addr
	}
	// Heartbeats get in the way of manual telnet sessions
	if os.Getenv("UPS_NO_HEARTBEAT") != "" {
		srvCfg.HeartbeatEnabled = false
		logger.Warn("heartbeat probing disabled")
	}

	srv := server.New(srvCfg, reg, resolver, live, logger)
	if err := srv.Listen(); err != nil {
		logger.Error("failed to listen", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Admin endpoint is optional
	if adminAddr := os.Getenv("UPS_ADMIN_ADDR"); adminAddr != "" {
		adminSrv := admin.NewServer(adminAddr, &stats{registry: reg, server: srv}, logger)
		go func() {
			if err := adminSrv.Run(ctx); err != nil {
				logger.Error("admin server error", slog.String("error", err.Error()))
			}
		}()
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
