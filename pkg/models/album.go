package models

import "time"

// Album represents a vinyl release in the user's collection
type Album struct {
	ID       int      `json:"id"` // catalog id, externally assigned
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Year     int      `json:"year,omitempty"`
	Styles   []string `json:"styles,omitempty"` // free-text genre/style tags
	Tracks   []Track  `json:"tracks,omitempty"`
	CoverURL string   `json:"coverUrl,omitempty"`
}

// Track represents one track on an album
type Track struct {
	Position string `json:"position"` // side/position label, e.g. "A1" or "2"
	Title    string `json:"title"`
}

// DetectionEvent is one audio-recognition observation of a song playing.
// A zero Title and Artist means "nothing currently playing".
type DetectionEvent struct {
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	AlbumHint string    `json:"albumHint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Silence reports whether the event carries no recognized song
func (e DetectionEvent) Silence() bool {
	return e.Title == "" && e.Artist == ""
}

// ResolvedPlay is the outcome of resolving a DetectionEvent against the
// collection. Resolved is false when no album could be matched confidently.
type ResolvedPlay struct {
	Resolved   bool    `json:"resolved"`
	AlbumID    int     `json:"albumId,omitempty"`
	Track      *Track  `json:"track,omitempty"`
	Confidence float64 `json:"confidence,omitempty"` // dissimilarity, lower is better
}

// AlbumSeconds pairs an album with its accumulated listening time
type AlbumSeconds struct {
	Album   Album `json:"album"`
	Seconds int   `json:"seconds"`
}

// ArtistMinutes pairs an artist name with whole minutes listened
type ArtistMinutes struct {
	Artist  string `json:"artist"`
	Minutes int    `json:"minutes"`
}

// GenreSeconds pairs a style tag with accumulated seconds and the share of
// total listening time that touched the tag. Percentages across tags can sum
// to more than 100 because an album contributes its full time to every tag
// it carries.
type GenreSeconds struct {
	Genre      string `json:"genre"`
	Seconds    int    `json:"seconds"`
	Percentage int    `json:"percentage"`
}

// StatisticsSnapshot is a presentation-ready aggregate over the ledger.
// It is recomputed wholesale, never mutated in place.
type StatisticsSnapshot struct {
	TopAlbum        AlbumSeconds   `json:"topAlbum"`
	LeastAlbum      AlbumSeconds   `json:"leastAlbum"`
	TopArtist       ArtistMinutes  `json:"topArtist"`
	DistinctAlbums  int            `json:"distinctAlbums"`
	DistinctArtists int            `json:"distinctArtists"`
	Genres          []GenreSeconds `json:"genres"`
	TotalSeconds    int            `json:"totalSeconds"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}
