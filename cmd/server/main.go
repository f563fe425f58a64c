package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/blog-state/internal/api"
	"github.com/UkralStul/blog-state/internal/config"
	"github.com/UkralStul/blog-state/internal/dataloader"
	"github.com/UkralStul/blog-state/internal/logging"
	"github.com/UkralStul/blog-state/internal/navigation"
	"github.com/UkralStul/blog-state/internal/oops"
	"github.com/UkralStul/blog-state/internal/state"
	"github.com/UkralStul/blog-state/internal/storage"
	"github.com/UkralStul/blog-state/internal/storage/inmemory"
	"github.com/UkralStul/blog-state/internal/storage/postgres"
	"github.com/UkralStul/blog-state/internal/workflow"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath, storageType string

	cmd := &cobra.Command{
		Use:          "blog-state",
		Short:        "Run the blog state synchronization server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if storageType != "" {
				cfg.Storage.Driver = storageType
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&storageType, "storage", "", "Storage type (in-memory or postgres), overrides config")

	return cmd
}

func run(ctx context.Context, cfg config.Config) (err error) {
	log, err := logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return err
	}
	defer logging.LogPanics(&log, &err)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("storage", cfg.Storage.Driver).Msg("starting server")
	store, err := openStorage(sigCtx, cfg.Storage, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("failed to open storage")
		return err
	}
	if cfg.Storage.Driver == config.DriverInMemory && cfg.Storage.Seed {
		// Заполним данными для тестов
		if err := fillWithMockData(sigCtx, store, log); err != nil {
			return err
		}
	}

	// Контейнер и воркфлоу живут до конца остановки, а не до сигнала
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	container := state.NewContainer(state.New(),
		state.WithLogger(log.With().Str("module", "state").Logger()),
		state.WithQueueSize(cfg.State.QueueSize),
	)
	containerDone := make(chan error, 1)
	go func() {
		containerDone <- container.Run(appCtx)
	}()

	hub := api.NewHub(log.With().Str("module", "hub").Logger())
	orchestrator := workflow.New(dataloader.New(store, cfg.Storage.BatchWait), container,
		workflow.WithLogger(log.With().Str("module", "workflow").Logger()),
		workflow.WithNotifier(workflow.Notifiers{
			workflow.LogNotifier{Log: log},
			hub,
		}),
	)
	router := navigation.NewRouter(orchestrator,
		navigation.WithPageSize(cfg.Navigation.PageSize),
		navigation.WithLogger(log.With().Str("module", "navigation").Logger()),
	)

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(api.Deps{
			Context:    appCtx,
			Dispatcher: orchestrator,
			Navigator:  router,
			State:      container,
			Hub:        hub,
			Log:        log.With().Str("module", "api").Logger(),
		}),
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
	serveErr := srv.ListenAndServe()
	stop()
	<-shutdownDone

	// Порядок остановки: HTTP, websocket-клиенты, воркфлоу, контейнер.
	// После hub.Close никто больше не вызывает Dispatch.
	hub.Close()
	orchestrator.Wait()
	cancelApp()
	<-containerDone

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = oops.New(serveErr, "server failed to start")
		log.Error().Stack().Err(err).Msg("server failed")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// openStorage открывает хранилище; подключение к PostgreSQL повторяется с экспоненциальной задержкой.
func openStorage(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (storage.Storage, error) {
	if cfg.Driver != config.DriverPostgres {
		return inmemory.New(), nil
	}

	boff := backoff.Backoff{
		Min:    1 * time.Second,
		Max:    cfg.ConnectMaxBackoff,
		Jitter: true,
	}
	for attempt := 1; ; attempt++ {
		store, err := postgres.New(cfg.DSN, cfg.Debug)
		if err == nil {
			return store, nil
		}
		if attempt >= cfg.ConnectAttempts {
			return nil, oops.New(err, "failed to connect to postgres after %d attempts", attempt)
		}

		wait := boff.Duration()
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("postgres unavailable")
		select {
		case <-ctx.Done():
			return nil, oops.New(ctx.Err(), "connect to postgres")
		case <-time.After(wait):
		}
	}
}
