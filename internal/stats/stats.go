package stats

import (
	"errors"
	"sort"
	"time"

	"spindle/internal/collection"
	"spindle/pkg/models"
)

// MinimumSeconds is the floor below which no statistic is reported. Half an
// hour of attributed listening is the least that produces meaningful
// rankings; anything under it reports ErrInsufficientData, which the
// presentation layer renders as "not enough data yet", never as zero.
const MinimumSeconds = 1800

// ErrInsufficientData is returned while total attributed listening time is
// below MinimumSeconds
var ErrInsufficientData = errors.New("not enough listening data yet")

// ErrNoData is returned when no ledger entry maps to a known album
var ErrNoData = errors.New("no listening data for any known album")

// counted is a ledger entry that survived reconciliation with the index
type counted struct {
	album   models.Album
	seconds int
}

// reconcile pairs ledger entries with their albums, dropping orphaned ids.
// Results are ordered by ascending album id so every downstream ranking is
// deterministic.
func reconcile(snapshot map[int]int, index *collection.Index) []counted {
	if index == nil {
		return nil
	}

	entries := make([]counted, 0, len(snapshot))
	for id, seconds := range snapshot {
		album, ok := index.LookupByID(id)
		if !ok {
			continue // orphaned id, excluded rather than errored
		}
		entries = append(entries, counted{album: album, seconds: seconds})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].album.ID < entries[j].album.ID
	})
	return entries
}

func checkFloor(snapshot map[int]int) error {
	total := 0
	for _, seconds := range snapshot {
		total += seconds
	}
	if total < MinimumSeconds {
		return ErrInsufficientData
	}
	return nil
}

// TopAlbum returns the album with the most accumulated seconds. Ties are
// broken by lowest album id.
func TopAlbum(snapshot map[int]int, index *collection.Index) (models.AlbumSeconds, error) {
	return extremeAlbum(snapshot, index, func(candidate, best int) bool {
		return candidate > best
	})
}

// LeastPlayedAlbum returns the album with the fewest accumulated seconds.
// Ties are broken by lowest album id.
func LeastPlayedAlbum(snapshot map[int]int, index *collection.Index) (models.AlbumSeconds, error) {
	return extremeAlbum(snapshot, index, func(candidate, best int) bool {
		return candidate < best
	})
}

func extremeAlbum(snapshot map[int]int, index *collection.Index, better func(candidate, best int) bool) (models.AlbumSeconds, error) {
	if err := checkFloor(snapshot); err != nil {
		return models.AlbumSeconds{}, err
	}

	entries := reconcile(snapshot, index)
	if len(entries) == 0 {
		return models.AlbumSeconds{}, ErrNoData
	}

	best := entries[0]
	for _, entry := range entries[1:] {
		// Strict comparison keeps the lowest id on ties because entries
		// are in ascending id order.
		if better(entry.seconds, best.seconds) {
			best = entry
		}
	}
	return models.AlbumSeconds{Album: best.album, Seconds: best.seconds}, nil
}

// TopArtistMinutes groups seconds by artist and returns the artist with the
// largest total, truncated to whole minutes. Ties are broken by the
// lexicographically smallest artist name.
func TopArtistMinutes(snapshot map[int]int, index *collection.Index) (models.ArtistMinutes, error) {
	if err := checkFloor(snapshot); err != nil {
		return models.ArtistMinutes{}, err
	}

	entries := reconcile(snapshot, index)
	if len(entries) == 0 {
		return models.ArtistMinutes{}, ErrNoData
	}

	totals := make(map[string]int)
	for _, entry := range entries {
		totals[entry.album.Artist] += entry.seconds
	}

	var topArtist string
	topSeconds := -1
	for artist, seconds := range totals {
		if seconds > topSeconds || (seconds == topSeconds && artist < topArtist) {
			topArtist = artist
			topSeconds = seconds
		}
	}
	return models.ArtistMinutes{Artist: topArtist, Minutes: topSeconds / 60}, nil
}

// DistinctAlbumsAndArtists returns the count of ledger entries resolvable
// to an album and the count of distinct artist names among those
func DistinctAlbumsAndArtists(snapshot map[int]int, index *collection.Index) (albums, artists int, err error) {
	if err := checkFloor(snapshot); err != nil {
		return 0, 0, err
	}

	entries := reconcile(snapshot, index)
	seen := make(map[string]struct{})
	for _, entry := range entries {
		seen[entry.album.Artist] = struct{}{}
	}
	return len(entries), len(seen), nil
}

// TopGenres sums each counted album's seconds into the bucket of every
// style tag the album carries. An album tagged both "Rock" and "Pop"
// contributes its full time to both; the buckets answer "how much listening
// touched this genre", not a partition of the total. Sorted by seconds
// descending, then tag name ascending.
func TopGenres(snapshot map[int]int, index *collection.Index) ([]models.GenreSeconds, error) {
	if err := checkFloor(snapshot); err != nil {
		return nil, err
	}

	entries := reconcile(snapshot, index)
	if len(entries) == 0 {
		return nil, ErrNoData
	}

	buckets := make(map[string]int)
	for _, entry := range entries {
		for _, tag := range entry.album.Styles {
			buckets[tag] += entry.seconds
		}
	}

	allTags := 0
	genres := make([]models.GenreSeconds, 0, len(buckets))
	for tag, seconds := range buckets {
		genres = append(genres, models.GenreSeconds{Genre: tag, Seconds: seconds})
		allTags += seconds
	}
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Seconds != genres[j].Seconds {
			return genres[i].Seconds > genres[j].Seconds
		}
		return genres[i].Genre < genres[j].Genre
	})

	for i := range genres {
		genres[i].Percentage = GenrePercentage(genres[i].Seconds, allTags)
	}
	return genres, nil
}

// GenrePercentage computes ceil(100 * seconds / totalAcrossAllTags). Because
// of the additive double-counting in TopGenres, percentages across tags may
// sum to more than 100.
func GenrePercentage(seconds, totalAcrossAllTags int) int {
	if totalAcrossAllTags <= 0 {
		return 0
	}
	return (100*seconds + totalAcrossAllTags - 1) / totalAcrossAllTags
}

// BuildSnapshot assembles the full derived statistics value in one pass.
// It reports ErrInsufficientData or ErrNoData whenever any constituent
// query would.
func BuildSnapshot(snapshot map[int]int, index *collection.Index) (models.StatisticsSnapshot, error) {
	top, err := TopAlbum(snapshot, index)
	if err != nil {
		return models.StatisticsSnapshot{}, err
	}
	least, err := LeastPlayedAlbum(snapshot, index)
	if err != nil {
		return models.StatisticsSnapshot{}, err
	}
	artist, err := TopArtistMinutes(snapshot, index)
	if err != nil {
		return models.StatisticsSnapshot{}, err
	}
	albums, artists, err := DistinctAlbumsAndArtists(snapshot, index)
	if err != nil {
		return models.StatisticsSnapshot{}, err
	}
	genres, err := TopGenres(snapshot, index)
	if err != nil {
		return models.StatisticsSnapshot{}, err
	}

	total := 0
	for _, seconds := range snapshot {
		total += seconds
	}

	return models.StatisticsSnapshot{
		TopAlbum:        top,
		LeastAlbum:      least,
		TopArtist:       artist,
		DistinctAlbums:  albums,
		DistinctArtists: artists,
		Genres:          genres,
		TotalSeconds:    total,
		GeneratedAt:     time.Now(),
	}, nil
}
