package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/deskpane/internal/api"
	"github.com/bryanchriswhite/deskpane/internal/config"
	"github.com/bryanchriswhite/deskpane/internal/logger"
	"github.com/bryanchriswhite/deskpane/internal/surface"
	"github.com/bryanchriswhite/deskpane/internal/wm"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the deskpane server",
	Long: `Start the deskpane HTTP server.

The server hosts the page that renders windows, the websocket the page
attaches to, and a REST API for opening, focusing and closing windows.`,
	Example: `  # Start server on default port (8080)
  deskpane serve

  # Start server on custom port
  deskpane serve --port 9090

  # Start with specific config file
  deskpane serve --config /path/to/config.yaml

  # Start with debug logging
  deskpane serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Override port from flag if provided
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}

	// Override log level from flag if provided
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			if !logger.ValidLevel(level) {
				return fmt.Errorf("invalid log level: %s", level)
			}
			configMgr.SetLogLevel(level)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.WithComponent("serve")

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	hub := surface.NewHub(cfg.Viewport, cfg.OutroTimeout)
	hub.OnButton(func(id wm.ID, action string) {
		logger.WithWindow("serve", int(id)).Info().Str("action", action).Msg("Titlebar button clicked")
	})

	registry := wm.NewRegistry[string](surface.NewFactory[string](hub), wm.WithDefaults(configMgr.WindowDefaults))
	server := api.NewServer(registry, hub, configMgr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg conc.WaitGroup
	serverErr := make(chan error, 1)

	wg.Go(func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			serverErr <- err
			stop()
		}
	})

	wg.Go(func() {
		err := configMgr.Watch(ctx, func(updated *config.Config) {
			// flags win over the file for the running process
			if !viper.IsSet("log_level") || viper.GetString("log_level") == "" {
				logger.Init(updated.LogLevel, updated.LogPretty)
			}
			hub.SetOutroTimeout(updated.OutroTimeout)
		})
		if err != nil {
			log.Warn().Err(err).Msg("Config watching disabled")
		}
	})

	log.Info().
		Str("ui", fmt.Sprintf("http://localhost:%d", cfg.ServerPort)).
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Msg("deskpane is running, press Ctrl+C to stop")

	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := registry.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Windows did not close in time")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}
	wg.Wait()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	default:
		return nil
	}
}
