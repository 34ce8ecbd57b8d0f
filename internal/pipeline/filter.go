// Package pipeline implements one poll cycle: list, filter, deduplicate, emit.
package pipeline

import "github.com/brianly1003/sftplister/internal/domain/ports"

// ParentDirName is the only entry name the filter discards.
const ParentDirName = ".."

// Keep reports whether a listed entry may become a candidate.
// Only ".." is discarded; "." and names like "..." or "a.." are kept.
func Keep(entry ports.DirectoryEntry) bool {
	return entry.Name != ParentDirName
}
