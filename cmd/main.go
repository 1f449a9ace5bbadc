package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/weiawesome/oidi-live/internal/config"
	"github.com/weiawesome/oidi-live/internal/handler"
	"github.com/weiawesome/oidi-live/internal/hub"
	"github.com/weiawesome/oidi-live/internal/metrics"
	"github.com/weiawesome/oidi-live/internal/relay"
	"github.com/weiawesome/oidi-live/internal/service"
	pkglog "github.com/weiawesome/oidi-live/pkg/log"
	"github.com/weiawesome/oidi-live/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting live-simulator")

	// Event bus: memory for a single instance, redis or kafka to share events
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create event bus")
	}
	defer bus.Close()
	logger.Info().Str("driver", cfg.PubSub.Driver).Msg("event bus ready")

	ctx, cancel := context.WithCancel(context.Background())

	// Create hub
	h := hub.NewHub(cfg.WebSocket)
	go h.Run(ctx)

	// Forward bus events to websocket subscribers
	eventRelay := relay.NewRelay(bus, h)
	go eventRelay.Run(ctx)

	// Create service
	svc := service.NewLiveService(h, relay.NewPublisher(bus), service.Config{
		Simulator: cfg.Simulator.SimulatorConfig(),
		FlashUnit: cfg.Camera.FlashUnit,
	})

	// Create handlers
	wsHandler := handler.NewWSHandler(h, svc, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(svc)

	// Setup routes
	router := mux.NewRouter()
	wsHandler.RegisterRoutes(router)
	httpHandler.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      pkglog.HTTPMiddleware(logger)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", addr).Msg("live-simulator listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down live-simulator")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		svc.Stop() // 1. end every session, emitting live_ended

		cancel()            // 2. stop the relay and the hub
		<-eventRelay.Done() // 3. wait for the relay goroutine to exit
		h.Stop()            // 4. close all WS clients

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("live-simulator stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
