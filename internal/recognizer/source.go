package recognizer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"spindle/pkg/models"
)

// Source yields detection events from the platform's audio-recognition
// process, in arrival order. Next blocks until an event is available,
// the stream ends (io.EOF) or the context is cancelled.
type Source interface {
	Next(ctx context.Context) (models.DetectionEvent, error)
}

// lineEvent is the wire shape of one recognizer feed line. An empty title
// and artist encodes "nothing currently playing". A missing timestamp is
// stamped on receipt.
type lineEvent struct {
	Title     string     `json:"title"`
	Artist    string     `json:"artist"`
	AlbumHint string     `json:"album,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// JSONLines reads one JSON-encoded detection event per line from an
// arbitrary reader, typically the recognizer process's stdout pipe
type JSONLines struct {
	scanner *bufio.Scanner
	now     func() time.Time
}

// maxLineBytes bounds a single feed line. Recognizer diagnostics can run
// well past bufio's default 64 KiB cap, which would end the whole stream.
const maxLineBytes = 1 << 20

// NewJSONLines creates a line-delimited JSON event source
func NewJSONLines(r io.Reader) *JSONLines {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &JSONLines{
		scanner: scanner,
		now:     time.Now,
	}
}

// Next parses the next feed line. Malformed lines are skipped rather than
// ending the stream; the recognizer occasionally writes diagnostics to the
// same pipe.
func (s *JSONLines) Next(ctx context.Context) (models.DetectionEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.DetectionEvent{}, err
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return models.DetectionEvent{}, fmt.Errorf("failed to read recognizer feed: %w", err)
			}
			return models.DetectionEvent{}, io.EOF
		}

		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw lineEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}

		event := models.DetectionEvent{
			Title:     raw.Title,
			Artist:    raw.Artist,
			AlbumHint: raw.AlbumHint,
		}
		if raw.Timestamp != nil {
			event.Timestamp = *raw.Timestamp
		} else {
			event.Timestamp = s.now()
		}
		return event, nil
	}
}

// Channel adapts an in-process event channel to the Source contract, for
// embedding the engine behind a platform recognizer callback
type Channel struct {
	events <-chan models.DetectionEvent
}

// NewChannel creates a channel-backed event source
func NewChannel(events <-chan models.DetectionEvent) *Channel {
	return &Channel{events: events}
}

// Next waits for the next event. A closed channel ends the stream with
// io.EOF.
func (c *Channel) Next(ctx context.Context) (models.DetectionEvent, error) {
	select {
	case <-ctx.Done():
		return models.DetectionEvent{}, ctx.Err()
	case event, ok := <-c.events:
		if !ok {
			return models.DetectionEvent{}, io.EOF
		}
		return event, nil
	}
}
