package recognizer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"spindle/pkg/models"
)

func TestJSONLinesParsesEvents(t *testing.T) {
	feed := strings.Join([]string{
		`{"title":"Come Together","artist":"The Beatles","album":"Abbey Road","timestamp":"2026-08-29T10:00:00Z"}`,
		`{"title":"","artist":""}`,
		``,
		`not json at all`,
		`{"title":"So What","artist":"Miles Davis"}`,
	}, "\n")

	source := NewJSONLines(strings.NewReader(feed))
	fixed := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source.now = func() time.Time { return fixed }

	first, err := source.Next(context.Background())
	if err != nil {
		t.Fatalf("Failed to read first event: %v", err)
	}
	if first.Title != "Come Together" || first.AlbumHint != "Abbey Road" {
		t.Errorf("Unexpected first event: %+v", first)
	}
	if first.Timestamp.IsZero() {
		t.Error("Expected feed timestamp to be preserved")
	}

	second, err := source.Next(context.Background())
	if err != nil {
		t.Fatalf("Failed to read second event: %v", err)
	}
	if !second.Silence() {
		t.Errorf("Expected nothing-playing event, got %+v", second)
	}

	// Blank and malformed lines are skipped
	third, err := source.Next(context.Background())
	if err != nil {
		t.Fatalf("Failed to read third event: %v", err)
	}
	if third.Title != "So What" {
		t.Errorf("Expected third event So What, got %q", third.Title)
	}
	if !third.Timestamp.Equal(fixed) {
		t.Errorf("Expected receipt timestamp %v, got %v", fixed, third.Timestamp)
	}

	if _, err := source.Next(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF at end of feed, got %v", err)
	}
}

func TestJSONLinesSurvivesOversizedLine(t *testing.T) {
	// A diagnostic line past bufio's default 64 KiB cap must not end the
	// stream; events after it still arrive.
	feed := strings.Repeat("x", 100*1024) + "\n" +
		`{"title":"So What","artist":"Miles Davis"}` + "\n"

	source := NewJSONLines(strings.NewReader(feed))
	event, err := source.Next(context.Background())
	if err != nil {
		t.Fatalf("Failed to read past oversized line: %v", err)
	}
	if event.Title != "So What" {
		t.Errorf("Expected So What, got %q", event.Title)
	}

	if _, err := source.Next(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF at end of feed, got %v", err)
	}
}

func TestJSONLinesHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewJSONLines(strings.NewReader(`{"title":"x","artist":"y"}`))
	if _, err := source.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestChannelSource(t *testing.T) {
	events := make(chan models.DetectionEvent, 1)
	source := NewChannel(events)

	events <- models.DetectionEvent{Title: "So What", Artist: "Miles Davis"}
	event, err := source.Next(context.Background())
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if event.Title != "So What" {
		t.Errorf("Unexpected event: %+v", event)
	}

	close(events)
	if _, err := source.Next(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF after close, got %v", err)
	}
}
