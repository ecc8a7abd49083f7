package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/infrastructure/mcsrvstat"
	"github.com/craftwatch/statusbot/pkg/infrastructure/observability"
	statestore "github.com/craftwatch/statusbot/pkg/infrastructure/persistence/state"
	"github.com/craftwatch/statusbot/pkg/infrastructure/telegram"
	"github.com/craftwatch/statusbot/pkg/service/bot"
	"github.com/craftwatch/statusbot/pkg/service/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll Telegram and answer commands (default)",
		Long: `The run command long-polls the Telegram Bot API and answers /check_status
with the status of the server named by SERVER_IP. BOT_TOKEN and SERVER_IP are required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
}

func runBot(parent context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("version", getVersion()).
		Stringer("config", cfg).
		Msg("Starting statusbot")

	shutdownTracing, err := observability.InitializeTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.OTELEnabled,
		Endpoint:       cfg.OTELEndpoint,
		Insecure:       cfg.OTELInsecure,
		ServiceName:    "statusbot",
		ServiceVersion: Version,
		SampleRate:     cfg.OTELSampleRate,
		ExportTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer shutdownWithTimeout("tracing", shutdownTracing)

	metrics := observability.NewMetrics()
	var metricsServer *observability.Server
	if cfg.MetricsAddr != "" {
		metricsServer = observability.NewServer(cfg.MetricsAddr, metrics, log.Logger)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
		defer shutdownWithTimeout("metrics endpoint", metricsServer.Shutdown)
	}

	store, err := statestore.Open(cfg.StatePath, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing state store")
		}
	}()

	api := telegram.NewClient(telegram.Config{
		BaseURL:     cfg.TelegramAPI,
		Token:       cfg.BotToken,
		PollTimeout: cfg.PollTimeout,
		Logger:      log.Logger,
		Observer:    metrics,
	})

	me, err := api.GetMe(ctx)
	switch {
	case errors.IsCode(err, errors.CodeConfigurationInvalid):
		return fmt.Errorf("failed to verify bot token: %w", err)
	case err != nil:
		// the poll loop retries transient failures and stops on a rejected token
		log.Warn().Err(err).Msg("Could not reach Telegram, polling anyway")
	default:
		log.Info().Str("username", me.Username).Int64("bot_id", me.ID).Msg("Authenticated with Telegram")
	}

	status := mcsrvstat.NewCachedClient(newStatusClient(cfg, metrics), cfg.StatusCacheTTL)

	b := bot.New(api, status, store, bot.Options{
		ServerAddress:  cfg.ServerIP,
		PollInterval:   cfg.PollInterval,
		PollTimeout:    cfg.PollTimeout,
		MaxBackoff:     cfg.MaxBackoff,
		CommandTimeout: cfg.CommandTimeout,
	}, log.Logger, metrics)

	if metricsServer != nil {
		metricsServer.SetReady(true)
	}

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot stopped: %w", err)
	}

	hits, misses := status.Stats()
	log.Info().
		Int64("offset", b.Offset()).
		Uint64("status_cache_hits", hits).
		Uint64("status_cache_misses", misses).
		Msg("Shutting down")
	return nil
}

func newStatusClient(cfg *config.Config, observer *observability.Metrics) *mcsrvstat.Client {
	return mcsrvstat.NewClient(mcsrvstat.Config{
		BaseURL:  cfg.StatusAPI,
		Timeout:  cfg.CommandTimeout,
		Logger:   log.Logger,
		Observer: observer,
	})
}

func shutdownWithTimeout(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("component", name).Msg("Error during shutdown")
	}
}
