package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianly1003/sftplister/internal/adapters/store"
	"github.com/brianly1003/sftplister/internal/config"
	"github.com/brianly1003/sftplister/internal/domain/ports"
	"github.com/brianly1003/sftplister/internal/testutil"
)

func TestSummarizeDoctorChecks(t *testing.T) {
	checks := []doctorCheck{
		{ID: "a", Status: doctorStatusOK},
		{ID: "b", Status: doctorStatusWarn},
		{ID: "c", Status: doctorStatusFail},
		{ID: "d", Status: doctorStatusOK},
	}

	summary := summarizeDoctorChecks(checks)
	if summary.Total != 4 || summary.OK != 2 || summary.Warn != 1 || summary.Fail != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		summary doctorSummary
		want    doctorStatus
	}{
		{
			name:    "all ok",
			summary: doctorSummary{Total: 2, OK: 2},
			want:    doctorStatusOK,
		},
		{
			name:    "warn only",
			summary: doctorSummary{Total: 2, OK: 1, Warn: 1},
			want:    doctorStatusWarn,
		},
		{
			name:    "fail takes precedence",
			summary: doctorSummary{Total: 3, OK: 1, Warn: 1, Fail: 1},
			want:    doctorStatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overallStatus(tt.summary); got != tt.want {
				t.Fatalf("overallStatus(%+v) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestCheckSFTPListing(t *testing.T) {
	cfg := config.SFTPConfig{RemoteDir: "/in/", TimeoutSeconds: 1}

	t.Run("ok", func(t *testing.T) {
		lister := testutil.NewFakeLister(testutil.Entries("..", "a", "b"))
		check := checkSFTPListing(context.Background(), cfg, func() (ports.DirectoryLister, error) {
			return lister, nil
		})
		if check.Status != doctorStatusOK {
			t.Fatalf("status = %s (%s), want ok", check.Status, check.Message)
		}
		if check.Details["entries"] != 2 {
			t.Errorf("entries = %v, want 2", check.Details["entries"])
		}
		if dirs := lister.Dirs(); len(dirs) != 1 || dirs[0] != "/in/" {
			t.Errorf("listed dirs = %v, want [/in/]", dirs)
		}
	})

	t.Run("list fails", func(t *testing.T) {
		lister := testutil.NewFakeLister()
		lister.FailOn(0, errors.New("permission denied"))
		check := checkSFTPListing(context.Background(), cfg, func() (ports.DirectoryLister, error) {
			return lister, nil
		})
		if check.Status != doctorStatusFail || !strings.Contains(check.Message, "permission denied") {
			t.Errorf("check = %+v, want fail mentioning the cause", check)
		}
	})

	t.Run("client setup fails", func(t *testing.T) {
		check := checkSFTPListing(context.Background(), cfg, func() (ports.DirectoryLister, error) {
			return nil, errors.New("bad key")
		})
		if check.Status != doctorStatusFail {
			t.Errorf("status = %s, want fail", check.Status)
		}
	})
}

func TestCheckStore(t *testing.T) {
	cfg := config.StoreConfig{Driver: config.StoreDriverMemory}

	mem := store.NewMemoryStore(0)
	if _, err := mem.PutIfAbsent(context.Background(), "/in/a"); err != nil {
		t.Fatal(err)
	}
	check := checkStore(context.Background(), cfg, func(context.Context) (ports.SeenStore, error) {
		return mem, nil
	})
	if check.Status != doctorStatusOK || check.Details["seen_keys"] != int64(1) {
		t.Errorf("check = %+v, want ok with 1 seen key", check)
	}

	check = checkStore(context.Background(), cfg, func(context.Context) (ports.SeenStore, error) {
		return nil, errors.New("connection refused")
	})
	if check.Status != doctorStatusFail {
		t.Errorf("status = %s, want fail", check.Status)
	}
}

func TestCheckKnownHosts(t *testing.T) {
	present := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(present, []byte("example.com ssh-ed25519 AAAA\n"), 0600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "nope")

	tests := []struct {
		name         string
		file         string
		allowUnknown bool
		want         doctorStatus
	}{
		{"verified", present, false, doctorStatusOK},
		{"present but permissive", present, true, doctorStatusWarn},
		{"missing but permissive", missing, true, doctorStatusWarn},
		{"missing", missing, false, doctorStatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := checkKnownHosts(config.SFTPConfig{KnownHostsFile: tt.file, AllowUnknownHostKeys: tt.allowUnknown})
			if check.Status != tt.want {
				t.Errorf("status = %s, want %s", check.Status, tt.want)
			}
		})
	}
}

func TestPrintDoctorText(t *testing.T) {
	checks := []doctorCheck{
		{ID: "config.load", Status: doctorStatusOK, Message: "loaded"},
		{ID: "sftp.list", Status: doctorStatusFail, Message: "refused", Remediation: "check host"},
	}
	summary := summarizeDoctorChecks(checks)
	report := doctorReport{Version: "1.0", Overall: overallStatus(summary), Summary: summary, Checks: checks}

	var buf bytes.Buffer
	printDoctorText(&buf, report)
	out := buf.String()

	for _, want := range []string{"overall: FAIL", "[OK] config.load: loaded", "[FAIL] sftp.list: refused", "fix: check host"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
