package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/blendflow/internal/api"
	"github.com/dunamismax/blendflow/internal/blend"
	"github.com/dunamismax/blendflow/internal/config"
	"github.com/dunamismax/blendflow/internal/plugin"
	"github.com/dunamismax/blendflow/internal/telemetry"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lmsgprefix)

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Telemetry, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}

	if err := blend.Startup(); err != nil {
		logger.Fatalf("blend runtime startup failed: %v", err)
	}
	defer blend.Shutdown()

	engine, err := blend.NewEngine(blend.Strategy(cfg.Blend.Strategy))
	if err != nil {
		logger.Fatalf("build blend engine: %v", err)
	}

	// No in-process plugin is linked in this build; the resolver still
	// carries the process entry point when one is configured.
	resolver := plugin.NewResolver(logger, nil, cfg.Plugin.Command)

	app := api.NewServer(logger, cfg.Limits, engine, resolver)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Printf("tracing shutdown failed: %v", err)
	}
}
