package pipeline

import (
	"context"

	"github.com/brianly1003/sftplister/internal/domain"
	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/brianly1003/sftplister/internal/domain/ports"
)

// Emitter pushes accepted files to the downstream sink, unchanged.
type Emitter struct {
	sink ports.FileSink
}

// NewEmitter creates an emitter over sink.
func NewEmitter(sink ports.FileSink) *Emitter {
	return &Emitter{sink: sink}
}

// Emit hands file to the sink. Failures come back as *domain.SinkError;
// there is no retry.
func (e *Emitter) Emit(ctx context.Context, file events.FileEvent) error {
	if err := e.sink.Emit(ctx, file); err != nil {
		return domain.NewSinkError(file.Key(), err)
	}
	return nil
}

// NewSubscriberSink returns a sink that writes each accepted file to sink
// before Emit returns, then publishes it to the hub's observers. A write
// error is returned to the cycle and sink stays in place for the next file.
// With a nil sink, files reach the hub only, as with NewHubSink.
func NewSubscriberSink(sink ports.Subscriber, observers ports.EventHub) ports.FileSink {
	if sink == nil {
		return NewHubSink(observers)
	}
	return ports.FileSinkFunc(func(ctx context.Context, file events.FileEvent) error {
		event := events.NewFileDiscoveredEvent(file)
		if err := sink.Send(event); err != nil {
			return err
		}
		observers.Publish(event)
		return nil
	})
}

// NewHubSink returns a sink that delivers file_discovered events through
// the hub. Delivery blocks while the hub buffer is full.
func NewHubSink(h ports.EventHub) ports.FileSink {
	return ports.FileSinkFunc(func(ctx context.Context, file events.FileEvent) error {
		return h.Deliver(ctx, events.NewFileDiscoveredEvent(file))
	})
}
