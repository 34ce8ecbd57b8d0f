package sftp

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh/knownhosts"
)

func TestHostKeyCallback_NoFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "known_hosts")

	if _, err := HostKeyCallback(missing, false); !errors.Is(err, ErrNoKnownHosts) {
		t.Errorf("HostKeyCallback(missing, false) error = %v, want ErrNoKnownHosts", err)
	}
	if _, err := HostKeyCallback("", false); !errors.Is(err, ErrNoKnownHosts) {
		t.Errorf("HostKeyCallback(\"\", false) error = %v, want ErrNoKnownHosts", err)
	}

	cb, err := HostKeyCallback(missing, true)
	if err != nil {
		t.Fatalf("HostKeyCallback(missing, true) error = %v", err)
	}
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 22}
	if err := cb("127.0.0.1:22", addr, newSigner(t).PublicKey()); err != nil {
		t.Errorf("callback should accept any key, got %v", err)
	}
}

func TestHostKeyCallback_WithFile(t *testing.T) {
	known := newSigner(t).PublicKey()
	file := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize("10.0.0.5:22")}, known)
	if err := os.WriteFile(file, []byte(line+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	listed := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}
	unlisted := &net.TCPAddr{IP: net.ParseIP("10.0.0.6"), Port: 22}

	tests := []struct {
		name         string
		allowUnknown bool
		host         string
		addr         net.Addr
		mismatch     bool
		wantErr      bool
	}{
		{"known host, matching key", false, "10.0.0.5:22", listed, false, false},
		{"known host, changed key", false, "10.0.0.5:22", listed, true, true},
		{"known host, changed key, allow unknown", true, "10.0.0.5:22", listed, true, true},
		{"unknown host rejected", false, "10.0.0.6:22", unlisted, false, true},
		{"unknown host allowed", true, "10.0.0.6:22", unlisted, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, err := HostKeyCallback(file, tt.allowUnknown)
			if err != nil {
				t.Fatalf("HostKeyCallback() error = %v", err)
			}

			key := known
			if tt.mismatch || tt.host != "10.0.0.5:22" {
				key = newSigner(t).PublicKey()
			}

			err = cb(tt.host, tt.addr, key)
			if (err != nil) != tt.wantErr {
				t.Errorf("callback error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHostKeyCallback_MalformedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(file, []byte("garbage line without key\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := HostKeyCallback(file, true); err == nil {
		t.Error("HostKeyCallback() should fail on a malformed file")
	}
}
