package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/deskpane/internal/geometry"
	"github.com/bryanchriswhite/deskpane/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogPretty  bool   `json:"log_pretty" yaml:"log_pretty"`

	// Viewport used for centering until a page reports its real size
	Viewport geometry.Size `json:"viewport" yaml:"viewport"`

	// How long an animated close waits for the page's outro_done
	OutroTimeout time.Duration `json:"outro_timeout" yaml:"outro_timeout"`

	// Overrides applied to DefaultWindowOptions before per-window options
	WindowDefaults map[string]any `json:"window_defaults,omitempty" yaml:"window_defaults,omitempty"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex

	// command-line overrides, re-applied on every reload
	portOverride     int
	logLevelOverride string
}

// NewManager loads the config file, creating it with defaults when missing.
// An empty configFile selects $HOME/.config/deskpane/config.yaml.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".config", "deskpane", "config.yaml")
	}

	m := &Manager{configPath: path}

	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("server_port", m.config.ServerPort).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort:   8080,
		LogLevel:     "info",
		Viewport:     geometry.Size{Width: 1920, Height: 1080},
		OutroTimeout: 2 * time.Second,
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.OutroTimeout <= 0 {
		cfg.OutroTimeout = Defaults().OutroTimeout
	}
	if _, err := MergeOptions(DefaultWindowOptions(), cfg.WindowDefaults); err != nil {
		return fmt.Errorf("window_defaults: %w", err)
	}

	m.mu.Lock()
	m.applyOverrides(cfg)
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// applyOverrides must be called with mu held.
func (m *Manager) applyOverrides(cfg *Config) {
	if m.portOverride != 0 {
		cfg.ServerPort = m.portOverride
	}
	if m.logLevelOverride != "" {
		cfg.LogLevel = m.logLevelOverride
	}
}

// Reload re-reads the config file.
func (m *Manager) Reload() error {
	return m.load()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	cfg := *m.config
	return &cfg
}

// WindowDefaults returns the built-in window options with the config file's
// window_defaults applied.
func (m *Manager) WindowDefaults() WindowOptions {
	cfg := m.Get()
	opts, err := MergeOptions(DefaultWindowOptions(), cfg.WindowDefaults)
	if err != nil {
		// load() validated these; only a bad Update can get here
		logger.WithComponent("config").Warn().Err(err).Msg("Ignoring invalid window_defaults")
		return DefaultWindowOptions()
	}
	return opts
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration and saves it
func (m *Manager) Update(cfg *Config) error {
	if _, err := MergeOptions(DefaultWindowOptions(), cfg.WindowDefaults); err != nil {
		return fmt.Errorf("window_defaults: %w", err)
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// SetPort sets the server port (not persisted). It survives Reload.
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portOverride = port
	m.config.ServerPort = port
}

// SetLogLevel sets the log level (not persisted). It survives Reload.
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logLevelOverride = level
	m.config.LogLevel = level
}

// GetConfigPath returns the config file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Viper returns a viper instance reading the same file, for key-based
// get/set from the CLI. Changes are persisted with WriteConfig.
func (m *Manager) Viper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.configPath, err)
	}
	return v, nil
}
