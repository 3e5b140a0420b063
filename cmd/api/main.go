package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"siriproxy.transitrt.org/internal/app"
	"siriproxy.transitrt.org/internal/appconf"
	"siriproxy.transitrt.org/internal/clock"
	"siriproxy.transitrt.org/internal/errorsink"
	"siriproxy.transitrt.org/internal/logging"
	"siriproxy.transitrt.org/internal/metrics"
	"siriproxy.transitrt.org/internal/models"
	"siriproxy.transitrt.org/internal/restapi"
	"siriproxy.transitrt.org/internal/webui"
)

type options struct {
	configFile string
	gtfs       string
	url        string
	port       int
	bind       string
	sentryDSN  string
	env        string
	verbose    bool
	rateLimit  int
}

func main() {
	opts := options{}

	rootCmd := &cobra.Command{
		Use:          "api",
		Short:        "Public-transit realtime proxy: GTFS + GTFS-RT fused behind a SIRI-lite API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configFile, "config-file", "c", envOr("TRANSIT_PROXY_CONFIG_FILE", ""), "path or url to the configuration yaml file")
	flags.StringVarP(&opts.gtfs, "gtfs", "g", envOr("TRANSIT_PROXY_GTFS", ""), "path or url to the GTFS zip; ignored when a config file is given")
	flags.StringVarP(&opts.url, "url", "u", envOr("TRANSIT_PROXY_GTFS_RT_URL", ""), "url of the GTFS-RT provider; ignored when a config file is given")
	flags.IntVarP(&opts.port, "port", "p", envIntOr("TRANSIT_PROXY_PORT", 8080), "port to listen on")
	flags.StringVarP(&opts.bind, "bind", "b", envOr("TRANSIT_PROXY_BIND", "0.0.0.0"), "bind address")
	flags.StringVar(&opts.sentryDSN, "sentry", envOr("TRANSIT_PROXY_SENTRY", ""), "sentry dsn")
	flags.StringVar(&opts.env, "env", envOr("TRANSIT_PROXY_ENV", "development"), "environment (development, test, production)")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	flags.IntVar(&opts.rateLimit, "rate-limit", 0, "requests per second allowed per client, 0 disables limiting")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

// loadDatasets resolves the dataset configuration: a config file wins, else
// the --gtfs/--url pair builds a single default dataset.
func loadDatasets(opts options) (models.Datasets, error) {
	if opts.configFile != "" {
		return models.LoadDatasets(opts.configFile)
	}
	if opts.gtfs != "" && opts.url != "" {
		return models.Datasets{
			Datasets: []models.DatasetInfo{
				models.NewDefaultDatasetInfo(opts.gtfs, []string{opts.url}),
			},
		}, nil
	}
	return models.Datasets{}, fmt.Errorf("no config file nor gtfs/url given, impossible to start the api")
}

func run(opts options) error {
	config := appconf.Config{
		Env:         appconf.EnvFlagToEnvironment(opts.env),
		Port:        opts.port,
		BindAddress: opts.bind,
		SentryDSN:   opts.sentryDSN,
		Verbose:     opts.verbose,
		RateLimit:   opts.rateLimit,
	}

	logger := logging.NewLogger(config.Env == appconf.Production, config.Verbose)
	slog.SetDefault(logger)

	sink, err := errorsink.New(config.SentryDSN, config.Env.String(), logger)
	if err != nil {
		return fmt.Errorf("impossible to initialise the error sink: %w", err)
	}
	defer sink.Close()

	datasets, err := loadDatasets(opts)
	if err != nil {
		return err
	}

	application := app.New(config, datasets, logger, clock.RealClock{}, metrics.New(), sink)

	logging.LogOperation(logger, "loading_datasets", slog.Int("count", len(datasets.Datasets)))
	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("impossible to start the datasets: %w", err)
	}
	defer application.Shutdown()

	api := restapi.New(application)
	handler := api.Handler()
	if config.Env != appconf.Production {
		mux := http.NewServeMux()
		mux.Handle("/", handler)
		mux.HandleFunc("GET /debug", webui.New(application).DebugHandler)
		handler = mux
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.BindAddress, config.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logging.LogOperation(logger, "shutting_down_server", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	logging.LogOperation(logger, "starting_server", slog.String("addr", server.Addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownErr; err != nil {
		return err
	}
	logging.LogOperation(logger, "server_stopped")
	return nil
}
