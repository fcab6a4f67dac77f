package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LuisErlacher/Archon/internal/app/migrate"
	"github.com/LuisErlacher/Archon/internal/docker"
	"github.com/LuisErlacher/Archon/internal/domain"
	httpx "github.com/LuisErlacher/Archon/internal/http"
	"github.com/LuisErlacher/Archon/internal/repository/postgres"
	"github.com/LuisErlacher/Archon/internal/service/auth"
	"github.com/LuisErlacher/Archon/internal/service/credential"
	"github.com/LuisErlacher/Archon/internal/service/mcp"
	"github.com/LuisErlacher/Archon/pkg/config"
	"github.com/LuisErlacher/Archon/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var credentials *credential.Service
	checks := make(map[string]func(context.Context) error)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			log.Error("failed to configure migrations", "error", err)
			os.Exit(1)
		}
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}

		repo := postgres.New(pool)
		credentials = credential.New(repo, cfg.SettingsKey, log)
		checks["database"] = repo.Ping
	} else {
		log.Warn("DATABASE_URL not set, settings fall back to defaults")
		credentials = credential.New(nil, cfg.SettingsKey, log)
	}

	verifier, err := auth.NewVerifier(cfg, &http.Client{Timeout: cfg.AuthTimeout})
	if err != nil {
		if cfg.AuthEnabled {
			log.Error("identity provider not configured", "provider", cfg.AuthProvider, "error", err)
			os.Exit(1)
		}
		log.Warn("identity provider not configured, token verification disabled", "provider", cfg.AuthProvider, "error", err)
		verifier = nil
	}
	authSvc := auth.New(verifier, log, cfg.AuthTimeout)

	mode := domain.ParseDeploymentMode(cfg.ServiceDiscoveryMode)
	prober := mcp.NewProber(mcp.ProberConfig{
		Mode:          mode,
		ServiceURL:    cfg.MCPServiceURL,
		ContainerName: cfg.MCPContainerName,
		Timeout:       cfg.MCPProbeTimeout,
	}, nil, mcp.DockerOpener(cfg.DockerHost), log)
	mcpSvc := mcp.New(prober, credentials, mcp.Settings{
		Host:               cfg.Host,
		Port:               cfg.MCPPort,
		SessionTimeout:     cfg.MCPSessionTimeout,
		DefaultModelChoice: cfg.DefaultModelChoice,
	}, log)
	if !mode.Remote() {
		checks["docker"] = func(ctx context.Context) error {
			cli, err := docker.New(cfg.DockerHost)
			if err != nil {
				return err
			}
			defer cli.Close()
			return cli.Ping(ctx)
		}
	}
	log.Info("mcp probe configured", "mode", string(prober.Mode()), "service_url", cfg.MCPServiceURL, "container", cfg.MCPContainerName)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, mcpSvc, httpx.Options{
		AuthEnabled:  cfg.AuthEnabled,
		Limiter:      limiter,
		HealthChecks: checks,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var metricsSrv *http.Server
	if addr := strings.TrimSpace(cfg.MetricsAddr); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", router.MetricsHandler())
		metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics server starting", "addr", addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment, "auth_enabled", cfg.AuthEnabled)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
