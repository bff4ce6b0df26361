package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/internal/app"
	"github.com/Siddarth2230/qrlinks/internal/auth"
	"github.com/Siddarth2230/qrlinks/internal/config"
	"github.com/Siddarth2230/qrlinks/internal/handler"
	"github.com/Siddarth2230/qrlinks/internal/middleware"
	"github.com/Siddarth2230/qrlinks/internal/service"
	"github.com/Siddarth2230/qrlinks/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise storage")
	}
	defer a.Close()

	visits := service.NewVisitRecorder(a.Registry, cfg.Visits.Workers, cfg.Visits.QueueSize, cfg.Visits.Timeout)

	var tokens *auth.TokenManager
	if cfg.Auth.JWTSecret != "" {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		log.Warn().Msg("auth.jwt_secret not set, bearer tokens are ignored")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go sweepLimiter(ctx, limiter)

	h := handler.NewLinkHandler(a.Registry, service.NewResolver(a.Registry, visits), service.NewRewriter(a.Registry), cfg.Server.BaseURL)
	router := handler.NewRouter(h, handler.RouterOptions{
		Authenticator:    middleware.NewAuthenticator(tokens),
		RateLimiter:      limiter,
		ProtectMutations: cfg.Auth.ProtectMutations,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("base_url", cfg.Server.BaseURL).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// redirects are done; flush the visits they queued
	if err := visits.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("visit recorder did not drain")
	}
	log.Info().Msg("server stopped")
}

func sweepLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Sweep(10 * time.Minute); n > 0 {
				log.Debug().Int("removed", n).Msg("rate limiter swept")
			}
		}
	}
}
