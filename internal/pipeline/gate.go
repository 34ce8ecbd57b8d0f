package pipeline

import (
	"context"
	"errors"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/brianly1003/sftplister/internal/domain/ports"
)

// Decision is the dedup gate's verdict on a candidate.
type Decision int

const (
	// Drop means the key was already recorded.
	Drop Decision = iota
	// Accept means the key was absent and has just been recorded.
	Accept
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Drop:
		return "drop"
	default:
		return "unknown"
	}
}

// Gate is the idempotent receiver in front of the emitter. It is the only
// component that touches the seen store.
type Gate struct {
	store ports.SeenStore
}

// NewGate creates a gate over store.
func NewGate(store ports.SeenStore) *Gate {
	return &Gate{store: store}
}

// Classify records the candidate's key if absent. The test and the insert
// are one store operation, so concurrent callers never both get Accept.
// On error the decision is meaningless and nothing was recorded.
func (g *Gate) Classify(ctx context.Context, candidate events.FileEvent) (Decision, error) {
	key := candidate.Key()

	inserted, err := g.store.PutIfAbsent(ctx, key)
	if err != nil {
		var storeErr *domain.StoreError
		if !errors.As(err, &storeErr) {
			err = domain.NewStoreError("put", key, err)
		}
		return Drop, err
	}

	if inserted {
		return Accept, nil
	}
	return Drop, nil
}

// Seen returns the number of recorded keys.
func (g *Gate) Seen(ctx context.Context) (int64, error) {
	return g.store.Count(ctx)
}

// Driver returns the store backend identifier.
func (g *Gate) Driver() string {
	return g.store.Driver()
}
