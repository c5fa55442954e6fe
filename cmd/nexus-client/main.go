package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hivemind/nexus-realtime/internal/config"
	"github.com/hivemind/nexus-realtime/internal/connection"
	"github.com/hivemind/nexus-realtime/internal/token"
	"github.com/hivemind/nexus-realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/client.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting nexus client",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"server_url", cfg.Server.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create the connection manager
	mgr := connection.NewManager(connection.Config{
		URL:                  cfg.Server.URL,
		AutoReconnect:        cfg.Connection.AutoReconnectEnabled(),
		ReconnectDelay:       cfg.Connection.ReconnectDelay,
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		PingTimeout:          cfg.Connection.PingTimeout,
		WriteTimeout:         cfg.Connection.WriteTimeout,
		BufferSize:           cfg.Connection.BufferSize,
	}, tokenStore(cfg), logger)

	mgr.OnStatusChange(func(status connection.Status) {
		logger.Info("connection status changed", "status", status)
	})

	for _, name := range cfg.Events.Subscribe {
		event := name
		mgr.Subscribe(event, func(data json.RawMessage) {
			logger.Info("event received", "event", event, "payload", string(data))
		})
		logger.Info("subscribed", "event", event)
	}

	// Start health and metrics server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(mgr, cfg.Metrics.Path),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	mgr.Connect()

	logger.Info("nexus client running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	mgr.Disconnect()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("nexus client stopped")
}

// tokenStore selects the bearer token source from configuration.
func tokenStore(cfg *config.ClientConfig) token.Store {
	switch {
	case cfg.Server.Token != "":
		return token.NewStatic(cfg.Server.Token)
	case cfg.Server.TokenPath != "":
		return token.NewFile(cfg.Server.TokenPath)
	case cfg.Server.TokenEnv != "":
		return token.NewEnv(cfg.Server.TokenEnv)
	}
	return nil
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(mgr connection.Manager, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := mgr.Status()

		health := struct {
			Status     string `json:"status"`
			Connection string `json:"connection"`
		}{
			Status:     "healthy",
			Connection: string(status),
		}

		w.Header().Set("Content-Type", "application/json")
		if status == connection.StatusError {
			health.Status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else if status != connection.StatusConnected {
			health.Status = "degraded"
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.Handle(metricsPath, promhttp.Handler())

	return mux
}
