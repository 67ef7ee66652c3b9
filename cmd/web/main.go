package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"anime-thumbnail-studio/internal/config"
	"anime-thumbnail-studio/internal/gemini"
	"anime-thumbnail-studio/internal/httpclient"
	"anime-thumbnail-studio/internal/logging"
	"anime-thumbnail-studio/internal/session"
	"anime-thumbnail-studio/internal/studio"
	"anime-thumbnail-studio/internal/web"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     &logger,
	})

	gen, err := newGenerator(ctx, cfg, httpClient, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("gemini init failed")
	}

	newController := web.NewControllerFunc(gen, &logger)
	sessions := session.NewStore(session.Options{MaxIdle: cfg.SessionIdle})

	srv := web.New(web.Options{
		Sessions:      sessions,
		NewController: newController,
		BaseContext:   ctx,
		DefaultLocale: cfg.DefaultLocale,
		SecureCookie:  cfg.SecureCookie,
		Logger:        &logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.WebAddr).Bool("credentials", gen != nil).Msg("web started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					logger.Debug().Int("removed", n).Int("active", sessions.Len()).Msg("idle sessions swept")
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	logger.Info().Msg("shut down")
}

// newGenerator returns a nil Generator when no credential is configured so
// every attempt surfaces the missing-credentials error.
func newGenerator(ctx context.Context, cfg config.Config, httpClient *http.Client, logger *zerolog.Logger) (studio.Generator, error) {
	if !cfg.HasCredentials() {
		logger.Warn().Msg("API_KEY is not set; generation will fail until it is configured")
		return nil, nil
	}

	gem, err := gemini.New(ctx, gemini.Options{
		APIKey:     cfg.APIKey,
		Model:      cfg.ImageModel,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return gem, nil
}
