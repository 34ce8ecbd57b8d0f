package ports

import (
	"context"

	"github.com/brianly1003/sftplister/internal/domain/events"
)

// FileSink receives file events from the pipeline.
type FileSink interface {
	// Emit hands one file event to the sink. A non-nil error means the event
	// was not taken.
	Emit(ctx context.Context, file events.FileEvent) error
}

// FileSinkFunc adapts a function to FileSink.
type FileSinkFunc func(ctx context.Context, file events.FileEvent) error

// Emit calls f.
func (f FileSinkFunc) Emit(ctx context.Context, file events.FileEvent) error {
	return f(ctx, file)
}
