package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MQTTPasswordEnv overrides mqtt.password when set.
const MQTTPasswordEnv = "WATERCOOLER_MQTT_PASSWORD"

// Config holds all application configuration.
type Config struct {
	LogLevel     string       `yaml:"log_level"`
	SettingsPath string       `yaml:"settings_path"`
	Device       DeviceConfig `yaml:"device"`
	MQTT         MQTTConfig   `yaml:"mqtt"`
}

// DeviceConfig holds discovery and connection settings.
type DeviceConfig struct {
	Address        string        `yaml:"address"`     // pin a device; skips name matching
	NameFilter     string        `yaml:"name_filter"` // empty means "any known model"
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// MQTTConfig holds the optional MQTT bridge settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "watercooler")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	home, _ := os.UserHomeDir()
	settingsPath := filepath.Join(home, ".local", "share", "watercooler", "settings.db")

	return &Config{
		LogLevel:     "info",
		SettingsPath: settingsPath,
		Device: DeviceConfig{
			NameFilter:     "CoolingSystem",
			ScanTimeout:    5 * time.Second,
			ConnectTimeout: 5 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "watercooler",
			TopicPrefix: "watercooler",
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in settings_path is expanded to the user's home
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.SettingsPath = expandTilde(cfg.SettingsPath)
	cfg.applyEnv()

	return cfg, nil
}

// applyEnv overlays secrets taken from the environment.
func (c *Config) applyEnv() {
	if pw := os.Getenv(MQTTPasswordEnv); pw != "" {
		c.MQTT.Password = pw
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.SettingsPath == "" {
		return fmt.Errorf("settings_path must not be empty")
	}

	if c.Device.ScanTimeout <= 0 {
		return fmt.Errorf("device.scan_timeout must be > 0")
	}

	if c.Device.ConnectTimeout <= 0 {
		return fmt.Errorf("device.connect_timeout must be > 0")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker must not be empty when mqtt is enabled")
		}
		if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "#+") {
			return fmt.Errorf("mqtt.topic_prefix must be non-empty and free of wildcards, got %q", c.MQTT.TopicPrefix)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// defaultHeader is written above the generated default config.
const defaultHeader = `# watercooler configuration
# device.name_filter: advertised-name fragment used for auto-connect;
#   leave empty to accept any LCT21001/LCT22002 controller.
# mqtt.password may also be given via WATERCOOLER_MQTT_PASSWORD.
`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the written path, or "" if a config was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// ParseLogLevel maps a log_level value to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
