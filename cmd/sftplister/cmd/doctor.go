package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brianly1003/sftplister/internal/adapters/sftp"
	"github.com/brianly1003/sftplister/internal/adapters/store"
	"github.com/brianly1003/sftplister/internal/config"
	"github.com/brianly1003/sftplister/internal/domain/ports"
	"github.com/spf13/cobra"
)

var (
	doctorJSON        bool
	doctorStrict      bool
	doctorOffline     bool
	doctorHTTPTimeout int
)

type doctorStatus string

const (
	doctorStatusOK   doctorStatus = "ok"
	doctorStatusWarn doctorStatus = "warn"
	doctorStatusFail doctorStatus = "fail"
)

type doctorCheck struct {
	ID          string                 `json:"id"`
	Status      doctorStatus           `json:"status"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Remediation string                 `json:"remediation,omitempty"`
}

type doctorSummary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
}

type doctorReport struct {
	Version      string        `json:"version"`
	GeneratedAt  string        `json:"generated_at"`
	Overall      doctorStatus  `json:"overall_status"`
	Summary      doctorSummary `json:"summary"`
	Checks       []doctorCheck `json:"checks"`
	SearchConfig []string      `json:"config_search_paths,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostics with remediation hints",
	Long: `Run read-only diagnostics against the local sftplister setup and print
actionable hints.

The checks load the configuration, open the seen store, list the remote
directory once, and check a running server's /health endpoint. Nothing is
recorded in the store. Use --offline to skip the SFTP and store checks.

By default the output is human-readable text.
Use --json for machine-readable output.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output machine-readable JSON")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "return non-zero on warnings")
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "skip the SFTP listing and store checks")
	doctorCmd.Flags().IntVar(&doctorHTTPTimeout, "http-timeout", 2, "health endpoint timeout in seconds")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := collectDoctorReport(cmd.Context())

	if doctorJSON {
		if err := printDoctorJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		printDoctorText(os.Stdout, report)
	}

	if report.Summary.Fail > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	if doctorStrict && report.Summary.Warn > 0 {
		return fmt.Errorf("doctor strict mode failed with %d warning(s)", report.Summary.Warn)
	}
	return nil
}

func collectDoctorReport(ctx context.Context) doctorReport {
	if ctx == nil {
		ctx = context.Background()
	}
	checks := make([]doctorCheck, 0, 8)

	cfg, cfgCheck := checkConfigLoad(cfgFile)
	checks = append(checks, cfgCheck)
	checks = append(checks, checkConfigDirectory())

	if cfg != nil {
		checks = append(checks, checkKnownHosts(cfg.SFTP))

		if !doctorOffline {
			checks = append(checks, checkStore(ctx, cfg.Store, func(ctx context.Context) (ports.SeenStore, error) {
				return store.Open(ctx, cfg.Store)
			}))
			checks = append(checks, checkSFTPListing(ctx, cfg.SFTP, func() (ports.DirectoryLister, error) {
				return sftp.NewLister(cfg.SFTP)
			}))
		}

		if cfg.Server.Enabled {
			checks = append(checks, checkHealthEndpoint(cfg.Server.Host, cfg.Server.Port, doctorHTTPTimeout))
		}
	}

	summary := summarizeDoctorChecks(checks)
	return doctorReport{
		Version:      "1.0",
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Overall:      overallStatus(summary),
		Summary:      summary,
		Checks:       checks,
		SearchConfig: configSearchPaths(cfgFile),
	}
}

func checkConfigLoad(path string) (*config.Config, doctorCheck) {
	cfg, err := config.Load(path)
	searchPaths := configSearchPaths(path)
	if err != nil {
		return nil, doctorCheck{
			ID:      "config.load",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to load config: %v", err),
			Details: map[string]interface{}{
				"config_path":  strings.TrimSpace(path),
				"search_paths": searchPaths,
			},
			Remediation: "Fix the config file, or run `sftplister config init --force` to regenerate defaults.",
		}
	}

	source := findFirstExistingPath(searchPaths)
	msg := "Configuration loaded using built-in defaults and environment overrides"
	if source != "" {
		msg = "Configuration loaded successfully"
	}

	return cfg, doctorCheck{
		ID:      "config.load",
		Status:  doctorStatusOK,
		Message: msg,
		Details: map[string]interface{}{
			"loaded_from":  source,
			"search_paths": searchPaths,
		},
	}
}

func checkConfigDirectory() doctorCheck {
	dir, err := config.GetConfigDir()
	if err != nil {
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to resolve config directory: %v", err),
			Remediation: "Verify your HOME environment and filesystem permissions.",
		}
	}

	info, statErr := os.Stat(dir)
	switch {
	case os.IsNotExist(statErr):
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusWarn,
			Message:     "Config directory does not exist yet",
			Details:     map[string]interface{}{"path": dir},
			Remediation: "Run `sftplister config init` to create initial local configuration.",
		}
	case statErr != nil:
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to access config directory: %v", statErr),
			Details:     map[string]interface{}{"path": dir},
			Remediation: "Fix directory permissions or create the directory manually.",
		}
	case !info.IsDir():
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     "Config path exists but is not a directory",
			Details:     map[string]interface{}{"path": dir},
			Remediation: "Remove the file and recreate directory with `mkdir -p ~/.sftplister`.",
		}
	}

	return doctorCheck{
		ID:      "config.directory",
		Status:  doctorStatusOK,
		Message: "Config directory is available",
		Details: map[string]interface{}{"path": dir},
	}
}

func checkKnownHosts(cfg config.SFTPConfig) doctorCheck {
	details := map[string]interface{}{
		"path":                    cfg.KnownHostsFile,
		"allow_unknown_host_keys": cfg.AllowUnknownHostKeys,
	}

	if _, err := os.Stat(cfg.KnownHostsFile); err != nil {
		if cfg.AllowUnknownHostKeys {
			return doctorCheck{
				ID:          "sftp.known_hosts",
				Status:      doctorStatusWarn,
				Message:     "Host keys are not verified",
				Details:     details,
				Remediation: "Add the server key with `ssh-keyscan <host> >> ~/.ssh/known_hosts` and set sftp.allow_unknown_host_keys to false.",
			}
		}
		return doctorCheck{
			ID:          "sftp.known_hosts",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("known_hosts file is not readable: %v", err),
			Details:     details,
			Remediation: "Create the file with `ssh-keyscan <host> >> ~/.ssh/known_hosts` or point sftp.known_hosts_file at it.",
		}
	}

	if cfg.AllowUnknownHostKeys {
		return doctorCheck{
			ID:          "sftp.known_hosts",
			Status:      doctorStatusWarn,
			Message:     "Unknown host keys are accepted",
			Details:     details,
			Remediation: "Set sftp.allow_unknown_host_keys to false once the server key is in known_hosts.",
		}
	}

	return doctorCheck{
		ID:      "sftp.known_hosts",
		Status:  doctorStatusOK,
		Message: "Host keys are verified against known_hosts",
		Details: details,
	}
}

// checkStore opens the configured store and counts its keys.
func checkStore(ctx context.Context, cfg config.StoreConfig, open func(context.Context) (ports.SeenStore, error)) doctorCheck {
	details := map[string]interface{}{"driver": cfg.Driver}

	s, err := open(ctx)
	if err != nil {
		return doctorCheck{
			ID:          "store.open",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to open seen store: %v", err),
			Details:     details,
			Remediation: "Check the store.* settings and that the database or bucket is reachable.",
		}
	}
	defer func() { _ = s.Close() }()

	count, err := s.Count(ctx)
	if err != nil {
		return doctorCheck{
			ID:          "store.open",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Seen store opened but cannot be read: %v", err),
			Details:     details,
			Remediation: "Check permissions on the store table, file or bucket.",
		}
	}

	details["seen_keys"] = count
	return doctorCheck{
		ID:      "store.open",
		Status:  doctorStatusOK,
		Message: "Seen store is reachable",
		Details: details,
	}
}

// checkSFTPListing lists the remote directory once without recording anything.
func checkSFTPListing(ctx context.Context, cfg config.SFTPConfig, newLister func() (ports.DirectoryLister, error)) doctorCheck {
	details := map[string]interface{}{
		"remote_dir": cfg.RemoteDir,
	}

	lister, err := newLister()
	if err != nil {
		return doctorCheck{
			ID:          "sftp.list",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to prepare SFTP client: %v", err),
			Details:     details,
			Remediation: "Check sftp.private_key_file, sftp.password and sftp.known_hosts_file.",
		}
	}
	details["target"] = lister.Target()

	timeout := cfg.Timeout() * 2
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries, err := lister.List(ctx, cfg.RemoteDir)
	if err != nil {
		return doctorCheck{
			ID:          "sftp.list",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Remote directory could not be listed: %v", err),
			Details:     details,
			Remediation: "Verify sftp.host, credentials, and that sftp.remote_dir exists and is readable.",
		}
	}

	files := 0
	for _, e := range entries {
		if !e.IsParentMarker {
			files++
		}
	}
	details["entries"] = files
	return doctorCheck{
		ID:      "sftp.list",
		Status:  doctorStatusOK,
		Message: fmt.Sprintf("Remote directory listed (%d entries)", files),
		Details: details,
	}
}

func checkHealthEndpoint(host string, port, timeoutSeconds int) doctorCheck {
	if strings.TrimSpace(host) == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = config.DefaultServerPort
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 2
	}

	url := fmt.Sprintf("http://%s:%d/health", host, port)
	client := &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return doctorCheck{
			ID:          "server.health_endpoint",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Health endpoint is not reachable: %v", err),
			Details:     map[string]interface{}{"url": url},
			Remediation: "Start the poller with `sftplister start` and verify host/port configuration.",
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return doctorCheck{
			ID:      "server.health_endpoint",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Health endpoint returned non-200 status: %d", resp.StatusCode),
			Details: map[string]interface{}{
				"url":         url,
				"status_code": resp.StatusCode,
				"body":        strings.TrimSpace(string(body)),
			},
			Remediation: "Check server logs (`sftplister start -v`) to diagnose HTTP startup issues.",
		}
	}

	return doctorCheck{
		ID:      "server.health_endpoint",
		Status:  doctorStatusOK,
		Message: "Health endpoint is reachable",
		Details: map[string]interface{}{
			"url":         url,
			"status_code": resp.StatusCode,
		},
	}
}

func summarizeDoctorChecks(checks []doctorCheck) doctorSummary {
	summary := doctorSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case doctorStatusOK:
			summary.OK++
		case doctorStatusWarn:
			summary.Warn++
		case doctorStatusFail:
			summary.Fail++
		}
	}
	return summary
}

func overallStatus(summary doctorSummary) doctorStatus {
	if summary.Fail > 0 {
		return doctorStatusFail
	}
	if summary.Warn > 0 {
		return doctorStatusWarn
	}
	return doctorStatusOK
}

func printDoctorJSON(w io.Writer, report doctorReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func printDoctorText(w io.Writer, report doctorReport) {
	fmt.Fprintf(w, "sftplister doctor v%s\n", report.Version)
	fmt.Fprintf(w, "generated_at: %s\n", report.GeneratedAt)
	fmt.Fprintf(w, "overall: %s  (ok=%d warn=%d fail=%d total=%d)\n\n",
		strings.ToUpper(string(report.Overall)),
		report.Summary.OK,
		report.Summary.Warn,
		report.Summary.Fail,
		report.Summary.Total,
	)

	for _, check := range report.Checks {
		label := "[OK]"
		if check.Status == doctorStatusWarn {
			label = "[WARN]"
		}
		if check.Status == doctorStatusFail {
			label = "[FAIL]"
		}

		fmt.Fprintf(w, "%s %s: %s\n", label, check.ID, check.Message)
		if check.Remediation != "" && check.Status != doctorStatusOK {
			fmt.Fprintf(w, "  fix: %s\n", check.Remediation)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tip: run `sftplister doctor --json` for machine-readable output.")
}

func findFirstExistingPath(paths []string) string {
	for _, candidate := range paths {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
