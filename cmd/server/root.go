package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/voxroom-server/internal/app"
	"github.com/vovakirdan/voxroom-server/internal/config"
	applog "github.com/vovakirdan/voxroom-server/internal/log"
)

var (
	configPath      string
	addr            string
	readHeader      time.Duration
	shutdownTimeout time.Duration
	logLevel        string
)

var rootCmd = &cobra.Command{
	Use:   "voxroom-server",
	Short: "Voice room coordination server",
	Long: `voxroom-server keeps track of who is connected, which room they are in,
relays WebRTC signaling between peers and brokers remote-control sessions.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	rootCmd.Flags().DurationVar(&readHeader, "read-header-timeout", 0, "HTTP read header timeout")
	rootCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(adminTokenCmd)
}

// loadConfig resolves configuration and applies command-line overrides.
func loadConfig() (config.Config, error) {
	bootLogger := applog.New("info")
	cfg, path, err := config.Load(bootLogger, configPath)
	if err != nil {
		return cfg, err
	}
	bootLogger.Debug().Str("path", path).Msg("config loaded")

	cfg.UpdateFrom(config.Config{
		Addr:              addr,
		ReadHeaderTimeout: readHeader,
		ShutdownTimeout:   shutdownTimeout,
		LogLevel:          logLevel,
	})
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := applog.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting voxroom server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
