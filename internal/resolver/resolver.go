package resolver

import (
	"spindle/internal/collection"
	"spindle/internal/similarity"
	"spindle/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultThreshold is the dissimilarity above which a best match is still
// rejected as "too dissimilar to trust"
const DefaultThreshold = 0.35

// DefaultEpsilon is the band within which track scores count as tied
const DefaultEpsilon = 0.01

// Resolver maps one raw detection event to an owned album, or to an
// unresolved outcome. It is stateless across events; only the acceptance
// threshold, tie epsilon and scorer are carried.
type Resolver struct {
	scorer    similarity.Scorer
	threshold float64
	epsilon   float64
	logger    *logrus.Logger
}

// New creates a resolver. A nil scorer falls back to the default
// Wagner-Fischer scorer; a non-positive threshold or epsilon falls back to
// DefaultThreshold and DefaultEpsilon.
func New(scorer similarity.Scorer, threshold, epsilon float64, logger *logrus.Logger) *Resolver {
	if scorer == nil {
		scorer = similarity.WagnerFischer{}
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{
		scorer:    scorer,
		threshold: threshold,
		epsilon:   epsilon,
		logger:    logger,
	}
}

// Resolve matches the event against the index. Silence events, a nil or
// still-empty index, and best scores above the threshold all produce an
// unresolved play; that is a normal outcome, not an error.
func (r *Resolver) Resolve(event models.DetectionEvent, index *collection.Index) models.ResolvedPlay {
	if event.Silence() || index == nil {
		return models.ResolvedPlay{}
	}

	// Recognition sometimes reports which album the song came from; that
	// hint matches album titles far better than the song title does.
	albumTitle := event.AlbumHint
	if albumTitle == "" {
		albumTitle = event.Title
	}

	match, found := index.FindBestTitleMatch(albumTitle, event.Artist)
	if !found || match.Score > r.threshold {
		r.logger.WithFields(logrus.Fields{
			"title":  event.Title,
			"artist": event.Artist,
		}).Debug("Detection unresolved")
		return models.ResolvedPlay{}
	}

	play := models.ResolvedPlay{
		Resolved:   true,
		AlbumID:    match.Album.ID,
		Confidence: match.Score,
	}
	play.Track = r.resolveTrack(event, match.Album)
	return play
}

// resolveTrack attempts track-level resolution within the matched album.
// It only runs when the recognized song title is distinguishable from the
// album title itself; the same scorer and threshold apply. Every track
// within epsilon of the minimum score counts as tied, and the earliest
// position among the tied wins.
func (r *Resolver) resolveTrack(event models.DetectionEvent, album models.Album) *models.Track {
	if event.Title == "" || event.Title == album.Title || len(album.Tracks) == 0 {
		return nil
	}

	scores := make([]float64, len(album.Tracks))
	minScore := 2.0
	for i := range album.Tracks {
		scores[i] = r.scorer.Score(event.Title, album.Tracks[i].Title)
		if scores[i] < minScore {
			minScore = scores[i]
		}
	}
	if minScore > r.threshold {
		return nil
	}

	for i := range album.Tracks {
		if scores[i] <= minScore+r.epsilon {
			track := album.Tracks[i]
			return &track
		}
	}
	return nil
}
