package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harshitk99/excali-new/internal/config"
	"github.com/harshitk99/excali-new/internal/handlers"
	"github.com/harshitk99/excali-new/internal/imagegen"
	_ "github.com/harshitk99/excali-new/internal/imagegen/gemini"
	"github.com/harshitk99/excali-new/internal/jobs"
	"github.com/harshitk99/excali-new/internal/repositories"
	"github.com/harshitk99/excali-new/internal/routers"
	"github.com/harshitk99/excali-new/internal/session"
	"github.com/harshitk99/excali-new/internal/telemetry"
	"github.com/harshitk99/excali-new/internal/utils"
)

const shutdownTimeout = 10 * time.Second

var listenAndServe = func(srv *http.Server) error {
	return srv.ListenAndServe()
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("port", "", "listen port")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, console)")
	flags.String("image-provider", "", "image provider (placeholder, gemini)")
	bindFlag(v, cmd, config.KeyPort, "port")
	bindFlag(v, cmd, config.KeyLogLevel, "log-level")
	bindFlag(v, cmd, config.KeyLogFormat, "log-format")
	bindFlag(v, cmd, config.KeyImageProvider, "image-provider")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	db, err := repositories.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	store := repositories.NewStore(db)

	var denylist utils.Denylist
	if cfg.RedisAddr != "" {
		tokens := repositories.NewTokenDenylist(repositories.NewRedisClient(cfg.RedisAddr))
		defer tokens.Close()
		denylist = tokens
		logger.Info("Token denylist enabled", zap.String("redis", cfg.RedisAddr))
	}

	provider, err := imagegen.NewProvider(cfg.ImageProvider, imagegen.Config{
		PlaceholderDelay: cfg.PlaceholderDelay,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiModel:      cfg.GeminiModel,
	})
	if err != nil {
		return err
	}
	logger.Info("Configuration loaded",
		zap.String("provider", provider.Name()),
		zap.String("database", cfg.DatabaseDriver))

	registry := session.NewRegistry()
	broadcaster := session.NewBroadcaster(registry, logger)
	dispatcher := handlers.NewDispatcher(registry, broadcaster, store, provider, logger)
	ws := handlers.NewWSHandler(utils.NewTokenVerifier(cfg.JWTSecret, denylist), registry, dispatcher, cfg.AllowedOrigins, logger)

	reporter := jobs.NewStatsReporter(registry, cfg.StatsSchedule, logger)
	if err := reporter.Start(); err != nil {
		return err
	}
	defer reporter.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routers.New(ws, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not track hijacked connections; close them so their read
	// loops unwind before the store goes away.
	srv.RegisterOnShutdown(func() {
		if n := registry.CloseAll("server shutting down"); n > 0 {
			logger.Info("closing websocket sessions", zap.Int("sessions", n))
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		logger.Info("whiteboard listening", zap.String("addr", srv.Addr))
		if err := listenAndServe(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		registry.CloseAll("server shutting down")
		if err := registry.WaitEmpty(shutdownCtx); err != nil {
			return fmt.Errorf("drain sessions: %w", err)
		}
		logger.Info("whiteboard stopped")
		return nil
	})

	return g.Wait()
}
