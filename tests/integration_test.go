package tests

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spindle/internal/collection"
	"spindle/internal/ledger"
	"spindle/internal/recognizer"
	"spindle/internal/resolver"
	"spindle/internal/session"
	"spindle/internal/stats"
	"spindle/internal/store"
	"spindle/pkg/models"

	"github.com/sirupsen/logrus"
)

var sessionStart = time.Date(2026, 8, 29, 21, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

// batchSource serves the whole collection as a single page
type batchSource struct {
	albums []models.Album
}

func (s batchSource) FetchPage(ctx context.Context, page int) ([]models.Album, bool, error) {
	if page > 1 {
		return nil, false, nil
	}
	return s.albums, false, nil
}

func collectionAlbums() []models.Album {
	return []models.Album{
		{ID: 1, Title: "Abbey Road", Artist: "The Beatles", Styles: []string{"Rock", "Pop"}},
		{ID: 2, Title: "Kind of Blue", Artist: "Miles Davis", Styles: []string{"Jazz"}},
		{ID: 3, Title: "Rumours", Artist: "Fleetwood Mac", Styles: []string{"Rock"}},
	}
}

func detection(title, artist string, offsetSeconds int) models.DetectionEvent {
	return models.DetectionEvent{
		Title:     title,
		Artist:    artist,
		Timestamp: sessionStart.Add(time.Duration(offsetSeconds) * time.Second),
	}
}

// TestListeningSessionEndToEnd drives the full pipeline: paginated load,
// resolution, duration inference and derived statistics.
func TestListeningSessionEndToEnd(t *testing.T) {
	logger := quietLogger()

	holder := collection.NewHolder()
	loader := collection.NewLoader(batchSource{albums: collectionAlbums()}, holder, collection.DefaultMatchOptions(), logger)
	if _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Failed to load collection: %v", err)
	}

	led := ledger.New()
	tracker := session.NewTracker(resolver.New(nil, 0, 0, logger), holder, led, time.Hour, logger)
	tracker.Start()

	// Five detections alternating between two of the three albums at
	// 0, 30, 60, 600 and 630 seconds.
	events := make(chan models.DetectionEvent, 5)
	events <- detection("Abbey Road", "The Beatles", 0)
	events <- detection("Kind of Blue", "Miles Davis", 30)
	events <- detection("Abbey Road", "The Beatles", 60)
	events <- detection("Kind of Blue", "Miles Davis", 600)
	events <- detection("Abbey Road", "The Beatles", 630)
	close(events)

	if err := tracker.Run(context.Background(), recognizer.NewChannel(events)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// First play of album 1 contributes the 30s to the first switch; the
	// long 60..600 stretch stays with album 1's second play; album 2 gets
	// the two 30s stretches. The final detection stays open.
	snapshot := led.Snapshot()
	if snapshot[1] != 570 {
		t.Errorf("Expected 570s for album 1, got %d", snapshot[1])
	}
	if snapshot[2] != 60 {
		t.Errorf("Expected 60s for album 2, got %d", snapshot[2])
	}
	if snapshot[3] != 0 {
		t.Errorf("Expected no time for album 3, got %d", snapshot[3])
	}

	// 630s total is below the 30-minute floor
	if _, err := tracker.Stats(); err != stats.ErrInsufficientData {
		t.Errorf("Expected ErrInsufficientData below the floor, got %v", err)
	}

	// Closing the session at the 2000s mark pushes album 1 over the floor
	tracker.Stop(sessionStart.Add(2000 * time.Second))

	result, err := tracker.Stats()
	if err != nil {
		t.Fatalf("Expected statistics after stop, got %v", err)
	}
	if result.TopAlbum.Album.ID != 1 || result.TopAlbum.Seconds != 1940 {
		t.Errorf("Expected top album 1 with 1940s, got %d with %ds", result.TopAlbum.Album.ID, result.TopAlbum.Seconds)
	}
	if result.LeastAlbum.Album.ID != 2 {
		t.Errorf("Expected least played album 2, got %d", result.LeastAlbum.Album.ID)
	}
	if result.TopArtist.Artist != "The Beatles" || result.TopArtist.Minutes != 32 {
		t.Errorf("Expected The Beatles with 32 minutes, got %s with %d", result.TopArtist.Artist, result.TopArtist.Minutes)
	}
	if result.DistinctAlbums != 2 || result.DistinctArtists != 2 {
		t.Errorf("Expected 2 albums / 2 artists, got %d / %d", result.DistinctAlbums, result.DistinctArtists)
	}

	// Album 1 (Rock, Pop) dominates the genre buckets
	if len(result.Genres) != 3 {
		t.Fatalf("Expected 3 genre buckets, got %d", len(result.Genres))
	}
	if result.Genres[0].Genre != "Pop" && result.Genres[0].Genre != "Rock" {
		t.Errorf("Expected Rock/Pop on top, got %q", result.Genres[0].Genre)
	}
}

// TestLedgerSurvivesRestart exercises persistence across process restarts
func TestLedgerSurvivesRestart(t *testing.T) {
	logger := quietLogger()
	dbPath := filepath.Join(t.TempDir(), "spindle.db")

	first, err := store.Open(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	led := ledger.New()
	led.RecordPlay(1, 570)
	led.RecordPlay(2, 60)
	if err := first.SaveLedger(led.Snapshot()); err != nil {
		t.Fatalf("Failed to persist ledger: %v", err)
	}
	if err := first.SaveAlbums(collectionAlbums()); err != nil {
		t.Fatalf("Failed to cache collection: %v", err)
	}
	first.Close()

	second, err := store.Open(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer second.Close()

	restored := ledger.New()
	saved, err := second.LoadLedger()
	if err != nil {
		t.Fatalf("Failed to load ledger: %v", err)
	}
	restored.Replace(saved)
	if restored.TotalSeconds() != 630 {
		t.Errorf("Expected 630s restored, got %d", restored.TotalSeconds())
	}

	cached, err := second.LoadAlbums()
	if err != nil {
		t.Fatalf("Failed to load cached collection: %v", err)
	}
	index, err := collection.Build(cached, collection.DefaultMatchOptions())
	if err != nil {
		t.Fatalf("Failed to rebuild index from cache: %v", err)
	}
	if index.Size() != 3 {
		t.Errorf("Expected 3 cached albums, got %d", index.Size())
	}
}
