package pipeline

import (
	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/rs/zerolog/log"
)

// DiscardFunc receives candidates the gate dropped.
type DiscardFunc func(file events.FileEvent)

// LogDiscard is the default discard path.
func LogDiscard(file events.FileEvent) {
	log.Debug().
		Str("remote_dir", file.RemoteDirectory).
		Str("remote_file", file.RemoteFile).
		Msg("already seen, dropped")
}
