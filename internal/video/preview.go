package video

import (
	"errors"
	"sync"

	"github.com/petems/interview-preflight/internal/media"
	"github.com/rs/zerolog"
)

var errTrackEnded = errors.New("camera track ended")

type nopSink struct{}

func (nopSink) Attach([]media.Track) error { return nil }
func (nopSink) Detach()                    {}

// LogSink is a preview sink that records and logs which tracks are bound.
type LogSink struct {
	log zerolog.Logger

	mu     sync.Mutex
	tracks []media.Track
}

// NewLogSink creates a sink logging through log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "preview").Logger()}
}

func (s *LogSink) Attach(tracks []media.Track) error {
	if len(tracks) == 0 {
		return errors.New("no tracks to preview")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = tracks
	for _, t := range tracks {
		s.log.Info().Str("track", t.ID()).Str("label", t.Label()).Msg("Preview attached")
	}
	return nil
}

func (s *LogSink) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracks == nil {
		return
	}
	s.log.Info().Int("tracks", len(s.tracks)).Msg("Preview detached")
	s.tracks = nil
}

// Tracks returns the tracks currently bound.
func (s *LogSink) Tracks() []media.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks
}
