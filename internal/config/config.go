// Package config provides configuration management for camarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerHost          = "127.0.0.1"
	defaultServerPort          = 3333
	defaultServerTimeout       = 30 * time.Second
	defaultShutdownTimeout     = 10 * time.Second
	defaultSoapTimeout         = 5 * time.Second
	defaultDiscoveryTimeout    = 2 * time.Second
	defaultDiscoveryConcurrent = 50
	defaultSchedulerTimezone   = "Asia/Tokyo"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Onvif     OnvifConfig     `mapstructure:"onvif"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file. Empty means {storage.base_dir}/cameras.db.
	Path     string `mapstructure:"path"`
	LogLevel string `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	BaseDir      string `mapstructure:"base_dir"`
	StreamDir    string `mapstructure:"stream_dir"`
	RecordingDir string `mapstructure:"recording_dir"`
	ThumbnailDir string `mapstructure:"thumbnail_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpegConfig holds transcoder binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	GpuProbe   bool   `mapstructure:"gpu_probe"`   // Run the GPU capability probe on startup
}

// SchedulerConfig holds recording scheduler configuration.
type SchedulerConfig struct {
	// Timezone is the IANA zone cron expressions are evaluated in and
	// recording filenames are stamped with.
	Timezone string `mapstructure:"timezone"`
}

// OnvifConfig holds ONVIF protocol client configuration.
type OnvifConfig struct {
	SoapTimeout          time.Duration `mapstructure:"soap_timeout"`
	DiscoveryTimeout     time.Duration `mapstructure:"discovery_timeout"`
	DiscoveryConcurrency int           `mapstructure:"discovery_concurrency"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CAMARR_ and use underscores for
// nesting. Example: CAMARR_SERVER_PORT=3333.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/camarr")
		v.AddConfigPath("$HOME/.camarr")
	}

	v.SetEnvPrefix("CAMARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not found is fine; defaults and env vars apply.
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	v.SetDefault("database.path", "")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.stream_dir", "streams")
	v.SetDefault("storage.recording_dir", "recordings")
	v.SetDefault("storage.thumbnail_dir", "thumbnails")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.gpu_probe", true)

	v.SetDefault("scheduler.timezone", defaultSchedulerTimezone)

	v.SetDefault("onvif.soap_timeout", defaultSoapTimeout)
	v.SetDefault("onvif.discovery_timeout", defaultDiscoveryTimeout)
	v.SetDefault("onvif.discovery_concurrency", defaultDiscoveryConcurrent)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Scheduler.Timezone == "" {
		return fmt.Errorf("scheduler.timezone is required")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone %q is not a valid IANA zone: %w", c.Scheduler.Timezone, err)
	}

	if c.Onvif.DiscoveryConcurrency < 1 {
		return fmt.Errorf("onvif.discovery_concurrency must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabasePath returns the database file path, defaulting under the
// storage base directory.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Storage.BaseDir, "cameras.db")
}

// StreamPath returns the full path to the stream segment directory.
func (c *StorageConfig) StreamPath() string {
	return filepath.Join(c.BaseDir, c.StreamDir)
}

// RecordingPath returns the full path to the recording directory.
func (c *StorageConfig) RecordingPath() string {
	return filepath.Join(c.BaseDir, c.RecordingDir)
}

// ThumbnailPath returns the full path to the thumbnail directory.
// Thumbnails live under the recording directory so the file server can
// expose both with one route.
func (c *StorageConfig) ThumbnailPath() string {
	return filepath.Join(c.RecordingPath(), c.ThumbnailDir)
}
