package collection

import (
	"fmt"
	"sort"
	"sync"

	"spindle/internal/similarity"
	"spindle/pkg/models"
)

// DuplicateIDError indicates two input albums shared a catalog id. The
// index rejects this outright rather than letting one entry shadow the
// other, which would silently bias every statistic downstream.
type DuplicateIDError struct {
	ID int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate album id %d in collection", e.ID)
}

// MatchOptions controls how fuzzy title/artist lookup combines scores
type MatchOptions struct {
	Scorer       similarity.Scorer
	TitleWeight  float64 // must be >= ArtistWeight
	ArtistWeight float64
	Epsilon      float64 // scores within epsilon of the best are ties
}

// DefaultMatchOptions returns the matching parameters used when the
// configuration does not override them
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		Scorer:       similarity.WagnerFischer{},
		TitleWeight:  0.6,
		ArtistWeight: 0.4,
		Epsilon:      0.01,
	}
}

// Index is a read-only snapshot of the user's collection. It is built once
// per load pass and replaced wholesale on refresh; it is never mutated after
// Build returns, so concurrent readers need no locking.
type Index struct {
	byID map[int]models.Album
	ids  []int // ascending, for deterministic candidate iteration
	opts MatchOptions
}

// Match is the result of a fuzzy lookup
type Match struct {
	Album models.Album
	Score float64 // combined dissimilarity, lower is better
}

// Build constructs an index from a batch of albums. It fails with a
// DuplicateIDError if two albums share an id.
func Build(albums []models.Album, opts MatchOptions) (*Index, error) {
	if opts.Scorer == nil {
		opts.Scorer = similarity.WagnerFischer{}
	}

	byID := make(map[int]models.Album, len(albums))
	ids := make([]int, 0, len(albums))
	for _, album := range albums {
		if _, exists := byID[album.ID]; exists {
			return nil, &DuplicateIDError{ID: album.ID}
		}
		byID[album.ID] = album
		ids = append(ids, album.ID)
	}
	sort.Ints(ids)

	return &Index{byID: byID, ids: ids, opts: opts}, nil
}

// Size returns the number of albums in the index
func (idx *Index) Size() int {
	return len(idx.byID)
}

// Albums returns the indexed albums in ascending id order
func (idx *Index) Albums() []models.Album {
	albums := make([]models.Album, 0, len(idx.ids))
	for _, id := range idx.ids {
		albums = append(albums, idx.byID[id])
	}
	return albums
}

// LookupByID returns the album with the given catalog id
func (idx *Index) LookupByID(id int) (models.Album, bool) {
	album, ok := idx.byID[id]
	return album, ok
}

// FindBestTitleMatch scores every album against the raw recognized strings
// and returns the one with the lowest combined score. The combined score
// weights title over artist; when only one of the raw strings is present,
// that field is scored alone. Every candidate within epsilon of the minimum
// counts as tied, and the lowest album id among the tied wins.
func (idx *Index) FindBestTitleMatch(rawTitle, rawArtist string) (Match, bool) {
	if len(idx.ids) == 0 || (rawTitle == "" && rawArtist == "") {
		return Match{}, false
	}

	scores := make([]float64, len(idx.ids))
	minScore := 2.0 // above any valid score
	for i, id := range idx.ids {
		scores[i] = idx.combinedScore(rawTitle, rawArtist, idx.byID[id])
		if scores[i] < minScore {
			minScore = scores[i]
		}
	}

	// ids are ascending, so the first candidate inside the tie band is
	// the lowest id
	for i, id := range idx.ids {
		if scores[i] <= minScore+idx.opts.Epsilon {
			return Match{Album: idx.byID[id], Score: scores[i]}, true
		}
	}
	return Match{}, false
}

func (idx *Index) combinedScore(rawTitle, rawArtist string, album models.Album) float64 {
	switch {
	case rawArtist == "":
		return idx.opts.Scorer.Score(rawTitle, album.Title)
	case rawTitle == "":
		return idx.opts.Scorer.Score(rawArtist, album.Artist)
	}

	titleScore := idx.opts.Scorer.Score(rawTitle, album.Title)
	artistScore := idx.opts.Scorer.Score(rawArtist, album.Artist)
	tw, aw := idx.opts.TitleWeight, idx.opts.ArtistWeight
	if tw+aw == 0 {
		tw, aw = 0.6, 0.4
	}
	return (titleScore*tw + artistScore*aw) / (tw + aw)
}

// Holder publishes the current index to readers. A load pass builds a new
// index off to the side and swaps it in; readers holding an old reference
// keep a consistent snapshot until they ask again.
type Holder struct {
	mutex sync.RWMutex
	index *Index
}

// NewHolder creates a holder with no index loaded yet
func NewHolder() *Holder {
	return &Holder{}
}

// Get returns the current index, or nil when no load has completed
func (h *Holder) Get() *Index {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.index
}

// Swap replaces the published index wholesale
func (h *Holder) Swap(index *Index) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.index = index
}
