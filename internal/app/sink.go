package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/brianly1003/sftplister/internal/config"
	"github.com/brianly1003/sftplister/internal/domain/ports"
	"github.com/brianly1003/sftplister/internal/hub"
)

// writerOnly hides Close so the subscriber never closes a shared stream.
type writerOnly struct {
	io.Writer
}

// openSink returns the downstream JSON-lines writer for accepted files, or
// nil when sink.output is "none". It is written to by the pipeline directly
// and is never registered with the hub.
func openSink(cfg config.SinkConfig, override io.Writer) (ports.Subscriber, error) {
	var w io.Writer

	switch {
	case override != nil:
		w = writerOnly{override}
	case cfg.Output == config.SinkOutputNone:
		return nil, nil
	case cfg.Output == config.SinkOutputStdout:
		w = writerOnly{os.Stdout}
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
			return nil, fmt.Errorf("create sink directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open sink file: %w", err)
		}
		w = f
	}

	return hub.NewWriterSubscriber("sink", w), nil
}
