//go:build deadlock

// Package sync provides the mutex types used by sftplister's stateful
// components (seen store, dedup gate, poller, hub). Release builds alias the
// standard library; building with -tags deadlock swaps in go-deadlock.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex reports lock-order inversions and long waits.
type Mutex = deadlock.Mutex

// RWMutex reports lock-order inversions and long waits.
type RWMutex = deadlock.RWMutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once

// DetectionEnabled reports whether deadlock detection is compiled in.
const DetectionEnabled = true

func init() {
	// No pipeline lock is held across network I/O.
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
	deadlock.Opts.PrintAllCurrentGoroutines = true

	if os.Getenv("SFTPLISTER_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
	}
}
