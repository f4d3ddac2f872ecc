// Package main provides the kidreel dev server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ayasaka/kidreel/internal/api/rest"
	"github.com/ayasaka/kidreel/internal/app/feed"
	"github.com/ayasaka/kidreel/internal/app/playback"
	"github.com/ayasaka/kidreel/internal/app/purchase"
	"github.com/ayasaka/kidreel/internal/app/settings"
	"github.com/ayasaka/kidreel/internal/infra/config"
	"github.com/ayasaka/kidreel/internal/infra/connectivity"
	"github.com/ayasaka/kidreel/internal/infra/contentapi"
	"github.com/ayasaka/kidreel/internal/infra/engine"
	"github.com/ayasaka/kidreel/internal/infra/identity"
	"github.com/ayasaka/kidreel/internal/infra/logger"
	"github.com/ayasaka/kidreel/internal/infra/metrics"
	"github.com/ayasaka/kidreel/internal/infra/payment"
	"github.com/ayasaka/kidreel/internal/infra/storage"
)

var (
	app        = kingpin.New("kidreel-server", "kidreel kids-video dev server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// validate command
	validateCmd = app.Command("validate", "Validate the config file and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Re-initialize the logger from config; flags still win.
	loggerConfig = logger.Config{
		Output: cfg.Logging.Output,
		Level:  cfg.Logging.Level,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		zlog.Fatal().Msgf("Failed to initialize logger: %v", err)
	}

	if command == validateCmd.FullCommand() {
		fmt.Println("Config OK")
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// devPresenter stands in for the platform payment sheet: every intent
// is treated as approved by the user.
type devPresenter struct{}

func (devPresenter) Present(ctx context.Context, clientSecret string) error {
	zlog.Info().Msgf("Auto-approving payment sheet for client secret %s", clientSecret)
	return nil
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Durable settings
	kv, err := storage.NewFileStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open settings storage: %w", err)
	}
	settingsStore := settings.New(kv)
	state := settingsStore.Load()
	zlog.Info().Msgf("Settings loaded: pin_set=%t restricted=%t selected=%d",
		state.PinSet, state.Restricted, len(state.Selected))

	// Media engine
	eng, err := engine.New(cfg.Engine.Type, cfg.Engine.Settings)
	if err != nil {
		return fmt.Errorf("failed to create media engine: %w", err)
	}

	// Connectivity
	conn := connectivity.New()

	// Playback controller
	controller := playback.NewController(playback.Config{
		LoadTimeout: cfg.Playback.LoadTimeout(),
		MaxRetries:  cfg.Playback.MaxRetries,
		FreeLimit:   cfg.Selection.FreeLimit,
	}, eng, settingsStore, conn)
	defer controller.Close()

	// Drain playback events into the log
	go func() {
		for ev := range controller.Events() {
			if ev.Message != "" {
				zlog.Info().Msgf("Playback event: type=%s video=%s state=%s message=%s",
					ev.Type, ev.VideoID, ev.State, ev.Message)
				continue
			}
			zlog.Info().Msgf("Playback event: type=%s video=%s state=%s",
				ev.Type, ev.VideoID, ev.State)
		}
	}()

	// Identity provider
	identityClient, err := identity.New(identity.Config{
		BaseURL: cfg.Identity.BaseURL,
		APIKey:  cfg.Identity.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create identity client: %w", err)
	}

	// Log auth-state changes for the lifetime of the server
	authCh, cancelAuth := identityClient.Subscribe()
	defer cancelAuth()
	go func() {
		for u := range authCh {
			if u == nil {
				zlog.Info().Msg("Auth state: signed out")
				continue
			}
			zlog.Info().Msgf("Auth state: signed in as %s", u.Email)
		}
	}()

	// Content listing
	contentClient, err := contentapi.New(contentapi.Config{
		BaseURL: cfg.Content.BaseURL,
		Timeout: cfg.Content.Timeout(),
	}, identityClient.TokenSource())
	if err != nil {
		return fmt.Errorf("failed to create content client: %w", err)
	}
	feedService := feed.New(contentClient, settingsStore, conn)

	// Payments
	paymentClient, err := payment.New(payment.Config{BaseURL: cfg.Payment.BaseURL})
	if err != nil {
		return fmt.Errorf("failed to create payment client: %w", err)
	}
	purchaseService := purchase.New(paymentClient, devPresenter{}, controller)

	// HTTP surface
	met := metrics.New()
	handler := rest.NewHandler(feedService, controller, settingsStore, purchaseService, identityClient, met)
	router := rest.NewRouter(handler, met)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(router, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}
