package store

import (
	"path/filepath"
	"testing"

	"spindle/pkg/models"

	"github.com/sirupsen/logrus"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	s, err := Open(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLedgerRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveLedger(map[int]int{1: 570, 2: 60}); err != nil {
		t.Fatalf("Failed to save ledger: %v", err)
	}

	loaded, err := s.LoadLedger()
	if err != nil {
		t.Fatalf("Failed to load ledger: %v", err)
	}
	if loaded[1] != 570 || loaded[2] != 60 {
		t.Errorf("Expected 570/60, got %d/%d", loaded[1], loaded[2])
	}

	// Saving again overwrites rather than accumulates
	if err := s.SaveLedger(map[int]int{1: 600}); err != nil {
		t.Fatalf("Failed to re-save ledger: %v", err)
	}
	loaded, err = s.LoadLedger()
	if err != nil {
		t.Fatalf("Failed to reload ledger: %v", err)
	}
	if loaded[1] != 600 {
		t.Errorf("Expected 600 after overwrite, got %d", loaded[1])
	}
}

func TestClearLedger(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveLedger(map[int]int{1: 100}); err != nil {
		t.Fatalf("Failed to save ledger: %v", err)
	}
	if err := s.ClearLedger(); err != nil {
		t.Fatalf("Failed to clear ledger: %v", err)
	}

	loaded, err := s.LoadLedger()
	if err != nil {
		t.Fatalf("Failed to load ledger: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty ledger after clear, got %d entries", len(loaded))
	}
}

func TestAlbumCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)

	albums := []models.Album{
		{
			ID:     1,
			Title:  "Abbey Road",
			Artist: "The Beatles",
			Year:   1969,
			Styles: []string{"Rock", "Pop"},
			Tracks: []models.Track{
				{Position: "A1", Title: "Come Together"},
				{Position: "A2", Title: "Something"},
			},
			CoverURL: "https://example.com/abbey.jpg",
		},
		{ID: 2, Title: "Kind of Blue", Artist: "Miles Davis", Year: 1959},
	}

	if err := s.SaveAlbums(albums); err != nil {
		t.Fatalf("Failed to save albums: %v", err)
	}

	loaded, err := s.LoadAlbums()
	if err != nil {
		t.Fatalf("Failed to load albums: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 albums, got %d", len(loaded))
	}

	first := loaded[0]
	if first.Title != "Abbey Road" || first.Year != 1969 {
		t.Errorf("Unexpected album: %+v", first)
	}
	if len(first.Styles) != 2 || first.Styles[0] != "Rock" {
		t.Errorf("Expected styles preserved, got %v", first.Styles)
	}
	if len(first.Tracks) != 2 || first.Tracks[1].Position != "A2" {
		t.Errorf("Expected tracks preserved, got %v", first.Tracks)
	}

	// A refresh replaces the cache wholesale
	if err := s.SaveAlbums(albums[1:]); err != nil {
		t.Fatalf("Failed to refresh albums: %v", err)
	}
	loaded, err = s.LoadAlbums()
	if err != nil {
		t.Fatalf("Failed to reload albums: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != 2 {
		t.Errorf("Expected cache replaced with album 2 only, got %+v", loaded)
	}
}
