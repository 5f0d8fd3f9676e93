// Package config provides configuration management for markd using
// Viper for flexible loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with the MARKD_ prefix, and validation. It manages server
// settings, file watching behavior, rendering options, and export
// defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/markd/internal/errors"
)

const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8000
	DefaultTheme       = "light"
	DefaultSyntaxTheme = "monokai"
	DefaultDebounceMS  = 150
	DefaultPingSecs    = 30
	DefaultPongSecs    = 60
	DefaultCacheSize   = 128
	DefaultMaxFileSize = 10 * 1024 * 1024
	DefaultExportDir   = "output"
)

// ValidThemes lists the UI themes the bundled stylesheets cover.
var ValidThemes = []string{"light", "dark", "catppuccin-mocha", "catppuccin-latte"}

type Config struct {
	Server    ServerConfig  `mapstructure:"server" yaml:"server"`
	Watcher   WatcherConfig `mapstructure:"watcher" yaml:"watcher"`
	Render    RenderConfig  `mapstructure:"render" yaml:"render"`
	Export    ExportConfig  `mapstructure:"export" yaml:"export"`
	ServePath string        `mapstructure:"-" yaml:"-"` // CLI argument, not from config file
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	Open           bool     `mapstructure:"open" yaml:"open"`
	NoOpen         bool     `mapstructure:"no-open" yaml:"no-open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Environment    string   `mapstructure:"environment" yaml:"environment"`
}

// Address returns the host:port pair the server binds to.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// URL returns the browsable base URL for the server.
func (s ServerConfig) URL() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

type WatcherConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	Recursive   bool `mapstructure:"recursive" yaml:"recursive"`
	DebounceMS  int  `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	PingSeconds int  `mapstructure:"ping_interval" yaml:"ping_interval"`
	PongSeconds int  `mapstructure:"pong_timeout" yaml:"pong_timeout"`
}

// Debounce returns the change-aggregation window as a duration.
func (w WatcherConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// PingInterval returns how often idle WebSocket clients are pinged.
func (w WatcherConfig) PingInterval() time.Duration {
	return time.Duration(w.PingSeconds) * time.Second
}

// PongTimeout returns how long a client may stay silent before it is
// considered dead.
func (w WatcherConfig) PongTimeout() time.Duration {
	return time.Duration(w.PongSeconds) * time.Second
}

type RenderConfig struct {
	Theme       string `mapstructure:"theme" yaml:"theme"`
	SyntaxTheme string `mapstructure:"syntax_theme" yaml:"syntax_theme"`
	CacheSize   int    `mapstructure:"cache_size" yaml:"cache_size"`
	MaxFileSize int64  `mapstructure:"max_file_size" yaml:"max_file_size"`
}

type ExportConfig struct {
	Output string `mapstructure:"output" yaml:"output"`
	Minify bool   `mapstructure:"minify" yaml:"minify"`
}

func Load() (*Config, error) {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Flag-style overrides that invert a default need an explicit
	// presence check; absence must leave the default alone.
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		config.Server.Open = false
	}
	if viper.IsSet("watcher.no-reload") && viper.GetBool("watcher.no-reload") {
		config.Watcher.Enabled = false
	}

	// Unmarshal misses slice values that arrive via AutomaticEnv, so
	// fetch allowed origins directly when the struct came up empty.
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		if origins := viper.GetStringSlice("server.allowed_origins"); len(origins) > 0 {
			config.Server.AllowedOrigins = origins
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error())
	}

	return &config, nil
}

// setDefaults registers every config key with Viper. Registration is
// what lets environment variables reach Unmarshal: AutomaticEnv only
// resolves keys Viper already knows about.
func setDefaults() {
	viper.SetDefault("server.host", DefaultHost)
	viper.SetDefault("server.port", DefaultPort)
	viper.SetDefault("server.open", true)
	viper.SetDefault("server.environment", "development")

	viper.SetDefault("watcher.enabled", true)
	viper.SetDefault("watcher.recursive", true)
	viper.SetDefault("watcher.debounce_ms", DefaultDebounceMS)
	viper.SetDefault("watcher.ping_interval", DefaultPingSecs)
	viper.SetDefault("watcher.pong_timeout", DefaultPongSecs)

	viper.SetDefault("render.theme", DefaultTheme)
	viper.SetDefault("render.syntax_theme", DefaultSyntaxTheme)
	viper.SetDefault("render.cache_size", DefaultCacheSize)
	viper.SetDefault("render.max_file_size", int64(DefaultMaxFileSize))

	viper.SetDefault("export.output", DefaultExportDir)
	viper.SetDefault("export.minify", false)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateWatcherConfig(&config.Watcher); err != nil {
		return fmt.Errorf("watcher config: %w", err)
	}

	if err := validateRenderConfig(&config.Render); err != nil {
		return fmt.Errorf("render config: %w", err)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Port 0 requests a system-assigned port; otherwise stay out of the
	// privileged range.
	if config.Port != 0 && (config.Port < 1024 || config.Port > 65535) {
		return fmt.Errorf("port %d is not in valid range 1024-65535", config.Port)
	}

	if config.Host != "" {
		// Basic validation - no dangerous characters
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validateWatcherConfig validates watcher configuration values
func validateWatcherConfig(config *WatcherConfig) error {
	if config.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", config.DebounceMS)
	}

	if config.PingSeconds <= 0 {
		return fmt.Errorf("ping_interval must be positive, got %d", config.PingSeconds)
	}

	if config.PongSeconds <= config.PingSeconds {
		return fmt.Errorf("pong_timeout (%d) must exceed ping_interval (%d)",
			config.PongSeconds, config.PingSeconds)
	}

	return nil
}

// validateRenderConfig validates render configuration values
func validateRenderConfig(config *RenderConfig) error {
	if !IsValidTheme(config.Theme) {
		return fmt.Errorf("theme %q is not one of %s",
			config.Theme, strings.Join(ValidThemes, ", "))
	}

	if config.CacheSize < 1 {
		return fmt.Errorf("cache_size must be at least 1, got %d", config.CacheSize)
	}

	if config.MaxFileSize < 1 {
		return fmt.Errorf("max_file_size must be positive, got %d", config.MaxFileSize)
	}

	return nil
}

// IsValidTheme reports whether name is a bundled UI theme.
func IsValidTheme(name string) bool {
	for _, theme := range ValidThemes {
		if theme == name {
			return true
		}
	}
	return false
}
