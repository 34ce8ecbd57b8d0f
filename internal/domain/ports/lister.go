// Package ports defines the interfaces (ports) for the hexagonal architecture.
package ports

import (
	"context"
	"time"
)

// DirectoryEntry is one item of a remote directory listing.
//
// IsParentMarker is informational (doctor uses it to count real entries).
// The pipeline filter ignores it and matches on Name == ".." only, so "."
// still becomes a candidate.
type DirectoryEntry struct {
	Name           string
	IsParentMarker bool // "." or ".." pseudo-entry
	IsDir          bool
	Size           int64
	ModTime        time.Time
}

// DirectoryLister defines the contract for listing a remote directory.
type DirectoryLister interface {
	// List returns the entries of remoteDir in whatever order the remote side
	// reports them. remoteDir is absolute and ends with "/".
	// Any failure is returned as a *domain.ListError.
	List(ctx context.Context, remoteDir string) ([]DirectoryEntry, error)

	// Target describes the remote endpoint (user@host:port) for logs and status.
	Target() string
}
