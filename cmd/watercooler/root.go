package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/watercooler/watercooler/internal/ble"
	"github.com/watercooler/watercooler/internal/config"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "watercooler",
	Short: "Control a BLE liquid-cooling controller",
	Long: `watercooler drives LCT21001/LCT22002 liquid-cooling controllers over
Bluetooth LE: pump voltage and duty, fan speed and RGB lighting.

Settings are persisted locally and re-applied every time the device
connects. The run command keeps a session open and can be driven over
MQTT; the other commands are one-shot.

Configuration is read from --config, else ~/.config/watercooler/config.yaml,
else built-in defaults. The MQTT password may be given through the
WATERCOOLER_MQTT_PASSWORD environment variable.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ~/.config/watercooler/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
}

// setup loads and validates the config and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	cfg = loaded

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		c, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return c, nil
	}

	// First run: leave a commented default behind for the user to edit.
	if written, err := config.WriteDefault(); err != nil {
		slog.Warn("Could not write default config", "error", err)
	} else if written != "" {
		slog.Info("Wrote default config", "path", written)
	}
	return config.Default(), nil
}

func sessionOptions() ble.SessionOptions {
	return ble.SessionOptions{
		ScanTimeout:    cfg.Device.ScanTimeout,
		ConnectTimeout: cfg.Device.ConnectTimeout,
	}
}

func newScanner(adapter ble.Adapter) ble.Scanner {
	return ble.Scanner{Adapter: adapter, Timeout: cfg.Device.ScanTimeout}
}
