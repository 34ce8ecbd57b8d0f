// Package pathutil provides path helpers for remote (SFTP) and local paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// RemoteSeparator is the path separator used by SFTP servers regardless of
// the local platform.
const RemoteSeparator = "/"

// NormalizeRemoteDir appends a trailing separator to a remote directory if it
// does not already end with one. Nothing else about the path is changed, so
// the result is stable across restarts for the same configured value.
//
//	/in     → /in/
//	/in/    → /in/
//	/       → /
func NormalizeRemoteDir(dir string) string {
	if dir == "" || strings.HasSuffix(dir, RemoteSeparator) {
		return dir
	}
	return dir + RemoteSeparator
}

// IsAbsoluteRemote reports whether dir is an absolute remote path.
func IsAbsoluteRemote(dir string) bool {
	return strings.HasPrefix(dir, RemoteSeparator)
}

// ExpandHome replaces a leading "~" with the user's home directory.
// Paths without the prefix, and paths where the home directory cannot be
// resolved, are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
