package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/profile-view/internal/api"
	"github.com/isdelr/profile-view/internal/config"
	"github.com/isdelr/profile-view/internal/logger"
	"github.com/isdelr/profile-view/internal/monitoring"
	"github.com/isdelr/profile-view/internal/render"
	"github.com/isdelr/profile-view/internal/session"
	"github.com/isdelr/profile-view/internal/upstream"
	"github.com/isdelr/profile-view/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	// Upstream API client
	client := upstream.New(cfg.APIBaseURL, cfg.HTTPTimeout)

	renderer, err := render.New(render.OSMEmbed{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	sessions := session.NewRegistry(time.Now)

	// Set up and run the idle view reaper
	reaper, err := monitoring.NewReaper(sessions, cfg.ViewIdleTTL, cfg.SweepSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up view reaper")
	}
	reaper.Run()

	// Set up router
	router := api.NewRouter(hub, client, sessions, renderer, cfg.AllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("api_base_url", cfg.APIBaseURL).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	reaper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	sessions.Close()
	hub.Stop()

	log.Info().Msg("Server exiting")
}
