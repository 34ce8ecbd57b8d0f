package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brianly1003/sftplister/internal/app"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var pollSummary bool

// pollCmd runs a single listing cycle.
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one poll cycle and exit",
	Long: `Run a single listing cycle against the configured directory, write every
newly seen file to stdout as a JSON line, and exit.

The seen store is shared with 'start', so a persistent store (sqlite,
postgres, s3) makes repeated runs emit only new files.

Example:
  sftplister poll
  sftplister poll --remote-dir /incoming
  sftplister poll --summary`,
	RunE: runPoll,
}

func init() {
	pollCmd.Flags().StringVar(&remoteDir, "remote-dir", "", "remote directory to poll (overrides sftp.remote_dir)")
	pollCmd.Flags().BoolVar(&pollSummary, "summary", false, "print the cycle result to stderr")
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Enabled = false
	if err := applyOverrides(cfg); err != nil {
		return err
	}

	if logFile := setupLogging(cfg); logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, version, app.WithSinkWriter(os.Stdout))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	res, err := application.RunOnce(ctx)
	if pollSummary && res != nil {
		encoder := json.NewEncoder(os.Stderr)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(res)
	}
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	log.Debug().
		Int("listed", res.Listed).
		Int("accepted", res.Accepted).
		Msg("poll complete")
	return nil
}
