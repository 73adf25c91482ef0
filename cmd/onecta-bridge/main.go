package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"onecta_bridge/internal/api"
	"onecta_bridge/internal/auth"
	"onecta_bridge/internal/collector"
	"onecta_bridge/internal/config"
	"onecta_bridge/internal/control"
	"onecta_bridge/internal/device"
	"onecta_bridge/internal/entity"
	"onecta_bridge/internal/gate"
	"onecta_bridge/internal/httpapi"
	"onecta_bridge/internal/mqtt"
	"onecta_bridge/internal/poller"
	"onecta_bridge/internal/types"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Onecta bridge", "listen_addr", cfg.ListenAddr, "api_url", cfg.APIURL)

	if err := run(cfg, logger); err != nil {
		logger.Error("Bridge failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Bridge stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Authentication
	authClient := auth.NewAuthClient(cfg.TokenURL, auth.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: cfg.RefreshToken,
	}, logger)
	if cfg.TokenFile != "" {
		authClient.OnRotate = func(token string) {
			if err := config.SaveRefreshToken(cfg.TokenFile, token); err != nil {
				logger.Error("Failed to persist rotated refresh token", "error", err)
			}
		}
	}

	// Core components
	registry := device.NewRegistry(logger)
	manager := entity.NewManager(nil, logger)

	// The collector reads rate limits from the client it observes.
	var client *api.Client
	metrics := collector.NewBridgeCollector(registry, manager, collector.RateLimitFunc(func() types.RateLimits {
		return client.RateLimits()
	}))

	g := gate.New()
	client = api.NewClient(cfg.APIURL, authClient, g, logger,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithObserver(metrics),
	)

	writer := control.NewWriter(client, logger,
		control.WithChangeHook(manager.Publish),
		control.WithObserver(metrics),
	)
	manager.SetWriter(writer)
	registry.Subscribe(manager.Sync)

	poll := poller.New(client, registry, poller.Config{
		Interval:    cfg.PollInterval,
		MinInterval: cfg.MinRefreshInterval,
	}, logger, metrics)

	// Prometheus registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// HTTP server
	if parseLevel(cfg.LogLevel) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := httpapi.NewHandler(manager, registry, client, poll,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger)
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// MQTT listeners are registered before the first refresh publishes state.
	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled() {
		mqttClient, err := mqtt.Connect(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		defer mqttClient.Close()

		bridge = mqtt.NewBridge(mqttClient, manager, cfg.MQTT.TopicPrefix, byte(cfg.MQTT.QoS), logger)
		manager.OnState(bridge.PublishState)
		manager.OnRemove(bridge.Clear)
	}

	group, gctx := errgroup.WithContext(ctx)

	if bridge != nil {
		group.Go(func() error {
			return bridge.Run(gctx)
		})
	}

	group.Go(func() error {
		return poll.Run(gctx)
	})

	group.Go(func() error {
		logger.Info("Server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
		if err := g.Drain(shutdownCtx); err != nil {
			logger.Warn("Gateway call still in flight at shutdown", "error", err)
		}
		return nil
	})

	return group.Wait()
}

// setupLogger creates a structured logger based on configuration.
func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
