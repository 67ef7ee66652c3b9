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
	"anime-thumbnail-studio/internal/handlers"
	"anime-thumbnail-studio/internal/httpclient"
	"anime-thumbnail-studio/internal/logging"
	"anime-thumbnail-studio/internal/session"
	"anime-thumbnail-studio/internal/studio"
	"anime-thumbnail-studio/internal/telegram"
)

const sweepInterval = time.Minute

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

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     &logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init failed")
	}

	gen, err := newGenerator(ctx, cfg, httpClient, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("gemini init failed")
	}

	sessions := session.NewStore(session.Options{MaxIdle: cfg.SessionIdle})

	handler := handlers.New(handlers.Options{
		Messenger:     tg,
		Sessions:      sessions,
		NewController: handlers.NewControllerFunc(gen, &logger),
		DefaultLocale: cfg.DefaultLocale,
		Logger:        &logger,
	})

	logger.Info().Str("username", tg.Username()).Bool("credentials", gen != nil).Msg("bot started")

	updates := tg.Updates(telegram.UpdatesOptions{Timeout: 30 * time.Second})
	defer tg.StopUpdates()

	// One request covers the remote call plus the Telegram uploads around it.
	requestTimeout := cfg.HTTPTimeout + 30*time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrent + 1)

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					logger.Debug().Int("removed", n).Int("active", sessions.Len()).Msg("idle chats swept")
				}
			}
		}
	})

	for {
		select {
		case <-gctx.Done():
			logger.Info().Msg("shutting down")
			_ = g.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info().Msg("updates channel closed")
				stop()
				_ = g.Wait()
				return
			}

			g.Go(func() error {
				reqCtx, cancel := context.WithTimeout(gctx, requestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Int("update_id", update.UpdateID).Msg("handle update failed")
				}
				return nil
			})
		}
	}
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
