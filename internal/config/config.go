// Package config handles configuration management for sftplister.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianly1003/sftplister/internal/pathutil"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	SFTP    SFTPConfig    `mapstructure:"sftp"`
	Poller  PollerConfig  `mapstructure:"poller"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SFTPConfig holds the remote connection and target directory.
type SFTPConfig struct {
	Host                 string `mapstructure:"host"`
	Port                 int    `mapstructure:"port"`
	Username             string `mapstructure:"username"`
	Password             string `mapstructure:"password"`
	PrivateKeyFile       string `mapstructure:"private_key_file"` // Optional: key auth, makes password optional
	RemoteDir            string `mapstructure:"remote_dir"`       // Normalized to end with "/" on load
	AllowUnknownHostKeys bool   `mapstructure:"allow_unknown_host_keys"`
	KnownHostsFile       string `mapstructure:"known_hosts_file"`
	TimeoutSeconds       int    `mapstructure:"timeout_seconds"`
}

// Address returns host:port.
func (c SFTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the dial/handshake timeout.
func (c SFTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollerConfig holds polling loop configuration.
type PollerConfig struct {
	IntervalMS          int  `mapstructure:"interval_ms"`
	RunOnStart          bool `mapstructure:"run_on_start"`
	CycleTimeoutSeconds int  `mapstructure:"cycle_timeout_seconds"` // 0 disables the per-cycle deadline
}

// Interval returns the poll period.
func (c PollerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// CycleTimeout returns the per-cycle deadline, zero when disabled.
func (c PollerConfig) CycleTimeout() time.Duration {
	return time.Duration(c.CycleTimeoutSeconds) * time.Second
}

// StoreConfig selects and configures the seen-key store.
type StoreConfig struct {
	Driver  string   `mapstructure:"driver"` // memory, sqlite, postgres, s3
	Path    string   `mapstructure:"path"`   // sqlite database file
	DSN     string   `mapstructure:"dsn"`    // postgres connection string
	Table   string   `mapstructure:"table"`
	MaxKeys int      `mapstructure:"max_keys"` // memory only; 0 keeps every key forever
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds S3 (or S3-compatible) store settings.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"` // Optional: MinIO or other S3-compatible endpoint
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// ServerConfig holds HTTP/WebSocket server configuration.
type ServerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	PollRateLimit int    `mapstructure:"poll_rate_limit"` // POST /api/poll requests per minute per client; 0 disables
	Pprof         bool   `mapstructure:"pprof"`           // expose /debug/pprof/

	// Browser origins allowed besides loopback; "*.example.com" matches subdomains.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SinkConfig holds downstream sink configuration.
type SinkConfig struct {
	BufferSize int    `mapstructure:"buffer_size"`
	Output     string `mapstructure:"output"` // stdout, none, or a file path
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v, err := read(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// read builds a viper instance with defaults, environment binding and the
// config file (if any) already read.
func read(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default search paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sftplister")
		v.AddConfigPath("/etc/sftplister")
	}

	// Environment variable prefix
	v.SetEnvPrefix("SFTPLISTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
// Keys without a meaningful default are still registered so that
// SFTPLISTER_* environment variables reach Unmarshal.
func setDefaults(v *viper.Viper) {
	// SFTP defaults
	v.SetDefault("sftp.host", "")
	v.SetDefault("sftp.port", DefaultSFTPPort)
	v.SetDefault("sftp.username", "")
	v.SetDefault("sftp.password", "")
	v.SetDefault("sftp.private_key_file", "")
	v.SetDefault("sftp.remote_dir", "")
	v.SetDefault("sftp.allow_unknown_host_keys", false)
	v.SetDefault("sftp.known_hosts_file", DefaultKnownHostsFile)
	v.SetDefault("sftp.timeout_seconds", 10)

	// Poller defaults
	v.SetDefault("poller.interval_ms", DefaultPollIntervalMS)
	v.SetDefault("poller.run_on_start", true)
	v.SetDefault("poller.cycle_timeout_seconds", DefaultCycleTimeoutSeconds)

	// Store defaults
	v.SetDefault("store.driver", StoreDriverMemory)
	v.SetDefault("store.path", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", DefaultStoreTable)
	v.SetDefault("store.max_keys", 0)
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.prefix", "sftplister/seen/")
	v.SetDefault("store.s3.region", "us-east-1")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.access_key", "")
	v.SetDefault("store.s3.secret_key", "")
	v.SetDefault("store.s3.use_path_style", false)

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.poll_rate_limit", DefaultPollRateLimit)
	v.SetDefault("server.pprof", false)
	v.SetDefault("server.allowed_origins", []string{})

	// Sink defaults
	v.SetDefault("sink.buffer_size", 256)
	v.SetDefault("sink.output", SinkOutputStdout)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	cfg.SFTP.Host = strings.TrimSpace(cfg.SFTP.Host)

	// The remote directory is normalized once here, never per cycle.
	cfg.SFTP.RemoteDir = pathutil.NormalizeRemoteDir(strings.TrimSpace(cfg.SFTP.RemoteDir))

	cfg.SFTP.KnownHostsFile = pathutil.ExpandHome(cfg.SFTP.KnownHostsFile)
	cfg.SFTP.PrivateKeyFile = pathutil.ExpandHome(cfg.SFTP.PrivateKeyFile)
	cfg.Logging.File = pathutil.ExpandHome(cfg.Logging.File)

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == StoreDriverSQLite {
		if cfg.Store.Path == "" {
			dir, err := GetConfigDir()
			if err != nil {
				return fmt.Errorf("failed to resolve config directory: %w", err)
			}
			cfg.Store.Path = filepath.Join(dir, "seen.db")
		}

		absPath, err := filepath.Abs(pathutil.ExpandHome(cfg.Store.Path))
		if err != nil {
			return fmt.Errorf("failed to resolve store path: %w", err)
		}
		cfg.Store.Path = absPath
	}

	return nil
}

// GetConfigDir returns the user config directory for sftplister.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".sftplister"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
