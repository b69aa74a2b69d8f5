package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Vision/internal/adapters/http"
	"github.com/dkeye/Vision/internal/adapters/rtc"
	"github.com/dkeye/Vision/internal/app"
	"github.com/dkeye/Vision/internal/app/orch"
	"github.com/dkeye/Vision/internal/app/sfu"
	"github.com/dkeye/Vision/internal/config"
	"github.com/dkeye/Vision/internal/core"
	"github.com/dkeye/Vision/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	reg := app.NewRegistry()
	cache := app.NewPublicationCache(cfg.CacheTTL, nil)
	forwarder := sfu.NewForwarder()

	rtcConfig := rtc.Configuration(cfg)
	o := &orch.Orchestrator{
		Registry:  reg,
		Cache:     cache,
		Forwarder: forwarder,
		Policy:    app.SimplePolicy{},
		NewMedia: func(id domain.ClientID) (core.MediaConnection, error) {
			return rtc.NewConnection(rtcConfig, id)
		},
		NegotiationTimeout: cfg.NegotiationTimeout,
	}

	cache.StartSweeper(ctx, cfg.CacheSweepInterval, func(id domain.ClientID) bool {
		_, live := reg.Lookup(id)
		return live
	})

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Vision relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
