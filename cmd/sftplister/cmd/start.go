package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brianly1003/sftplister/internal/app"
	"github.com/brianly1003/sftplister/internal/config"
	"github.com/brianly1003/sftplister/internal/pathutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	remoteDir string
	interval  time.Duration
	port      int
	noServer  bool
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start polling the remote directory",
	Long: `Start polling the configured SFTP directory and emit every file that
has not been seen before.

The HTTP server (health, status, manual poll, metrics and the /ws event
stream) runs alongside the poller unless --no-server is given.
Changes to logging.level in the config file are applied without restart.

Example:
  sftplister start
  sftplister start --remote-dir /incoming --interval 5s
  sftplister start --port 8780
  sftplister start --no-server`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&remoteDir, "remote-dir", "", "remote directory to poll (overrides sftp.remote_dir)")
	startCmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (overrides poller.interval_ms)")
	startCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default: 8780)")
	startCmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the HTTP server")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Watch(cfgFile, func(updated *config.Config) {
		applyLogLevel(updated.Logging.Level)
		log.Info().Str("level", zerolog.GlobalLevel().String()).Msg("log level reloaded")
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := applyOverrides(cfg); err != nil {
		return err
	}

	if logFile := setupLogging(cfg); logFile != nil {
		defer logFile.Close()
	}

	log.Info().
		Str("version", version).
		Str("host", cfg.SFTP.Host).
		Str("remote_dir", cfg.SFTP.RemoteDir).
		Dur("interval", cfg.Poller.Interval()).
		Str("store", cfg.Store.Driver).
		Msg("starting sftplister")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("sftplister stopped")
	return nil
}

// applyOverrides copies command-line flags onto cfg and re-validates it.
func applyOverrides(cfg *config.Config) error {
	if remoteDir != "" {
		cfg.SFTP.RemoteDir = pathutil.NormalizeRemoteDir(strings.TrimSpace(remoteDir))
	}
	if interval > 0 {
		cfg.Poller.IntervalMS = int(interval.Milliseconds())
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if noServer {
		cfg.Server.Enabled = false
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// setupLogging configures the global zerolog logger. When logging.file is
// set, records are also written to a rotating file; the returned closer
// must be closed on exit.
func setupLogging(cfg *config.Config) io.Closer {
	applyLogLevel(cfg.Logging.Level)

	var console io.Writer = os.Stderr
	if cfg.Logging.Format == "console" || verbose {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	if cfg.Logging.File == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nil
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   true,
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, rotating)).With().Timestamp().Logger()
	return rotating
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	if verbose && parsed > zerolog.DebugLevel {
		parsed = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
