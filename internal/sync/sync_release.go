//go:build !deadlock

// Package sync provides the mutex types used by sftplister's stateful
// components (seen store, dedup gate, poller, hub). Release builds alias the
// standard library; building with -tags deadlock swaps in go-deadlock.
package sync

import "sync"

// Mutex is the standard sync.Mutex.
type Mutex = sync.Mutex

// RWMutex is the standard sync.RWMutex.
type RWMutex = sync.RWMutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once

// DetectionEnabled reports whether deadlock detection is compiled in.
const DetectionEnabled = false
