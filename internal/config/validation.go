package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/brianly1003/sftplister/internal/pathutil"
	"github.com/rs/zerolog"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateSFTP(&cfg.SFTP); err != nil {
		return err
	}

	if err := validatePoller(&cfg.Poller); err != nil {
		return err
	}

	if err := validateStore(&cfg.Store); err != nil {
		return err
	}

	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateSink(&cfg.Sink); err != nil {
		return err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	return nil
}

func validateSFTP(cfg *SFTPConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("sftp.host cannot be empty")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("sftp.port must be between 0 and 65535")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return fmt.Errorf("sftp.username cannot be empty")
	}
	if cfg.PrivateKeyFile != "" {
		if err := validateExistingFile(cfg.PrivateKeyFile, "sftp.private_key_file"); err != nil {
			return err
		}
	} else if strings.TrimSpace(cfg.Password) == "" {
		return fmt.Errorf("sftp.password cannot be empty unless sftp.private_key_file is set")
	}
	if strings.TrimSpace(cfg.RemoteDir) == "" {
		return fmt.Errorf("sftp.remote_dir cannot be empty")
	}
	if !pathutil.IsAbsoluteRemote(cfg.RemoteDir) {
		return fmt.Errorf("sftp.remote_dir must be an absolute path: %s", cfg.RemoteDir)
	}
	if cfg.TimeoutSeconds < 1 {
		return fmt.Errorf("sftp.timeout_seconds must be at least 1")
	}
	if cfg.TimeoutSeconds > 300 {
		return fmt.Errorf("sftp.timeout_seconds cannot exceed 300")
	}
	return nil
}

func validatePoller(cfg *PollerConfig) error {
	if cfg.IntervalMS < 10 {
		return fmt.Errorf("poller.interval_ms must be at least 10")
	}
	if cfg.CycleTimeoutSeconds < 0 {
		return fmt.Errorf("poller.cycle_timeout_seconds must not be negative")
	}
	return nil
}

func validateStore(cfg *StoreConfig) error {
	known := false
	for _, d := range StoreDrivers {
		if cfg.Driver == d {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("store.driver must be one of: %s", strings.Join(StoreDrivers, ", "))
	}

	if cfg.MaxKeys < 0 {
		return fmt.Errorf("store.max_keys cannot be negative")
	}
	if cfg.MaxKeys > 0 && cfg.Driver != StoreDriverMemory {
		return fmt.Errorf("store.max_keys is only supported by the memory driver")
	}

	switch cfg.Driver {
	case StoreDriverSQLite:
		if cfg.Path == "" {
			return fmt.Errorf("store.path cannot be empty for the sqlite driver")
		}
	case StoreDriverPostgres:
		if cfg.DSN == "" {
			return fmt.Errorf("store.dsn cannot be empty for the postgres driver")
		}
	case StoreDriverS3:
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("store.s3.bucket cannot be empty for the s3 driver")
		}
		if (cfg.S3.AccessKey == "") != (cfg.S3.SecretKey == "") {
			return fmt.Errorf("store.s3.access_key and store.s3.secret_key must both be set")
		}
	}

	if cfg.Driver == StoreDriverSQLite || cfg.Driver == StoreDriverPostgres {
		if !tableNamePattern.MatchString(cfg.Table) {
			return fmt.Errorf("store.table must be a plain SQL identifier: %q", cfg.Table)
		}
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("server.host cannot be empty")
	}
	if cfg.PollRateLimit < 0 {
		return fmt.Errorf("server.poll_rate_limit must not be negative")
	}
	return nil
}

func validateSink(cfg *SinkConfig) error {
	if cfg.BufferSize < 1 {
		return fmt.Errorf("sink.buffer_size must be at least 1")
	}
	if cfg.BufferSize > 65536 {
		return fmt.Errorf("sink.buffer_size cannot exceed 65536")
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return fmt.Errorf("sink.output cannot be empty (use %q to disable)", SinkOutputNone)
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if _, err := zerolog.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("logging.level is invalid: %s", cfg.Level)
	}
	if cfg.Format != "console" && cfg.Format != "json" {
		return fmt.Errorf("logging.format must be console or json")
	}
	if cfg.File != "" && cfg.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be at least 1")
	}
	return nil
}

func validateExistingFile(path, fieldName string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist: %s", fieldName, path)
		}
		return fmt.Errorf("unable to access %s (%s): %w", fieldName, path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s must be a file, not a directory: %s", fieldName, path)
	}

	return nil
}
