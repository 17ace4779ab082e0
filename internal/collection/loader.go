package collection

import (
	"context"
	"fmt"

	"spindle/pkg/models"

	"github.com/sirupsen/logrus"
)

// AlbumSource produces the user's collection one page at a time. The loader
// does not assume a known total count; it keeps fetching until the source
// reports no further pages.
type AlbumSource interface {
	FetchPage(ctx context.Context, page int) (albums []models.Album, more bool, err error)
}

// Loader streams a paginated collection fetch into a fresh Index and swaps
// it into the holder once complete. Partial results are published after
// every page so the resolver can start matching before the fetch finishes.
type Loader struct {
	source AlbumSource
	holder *Holder
	opts   MatchOptions
	logger *logrus.Logger
}

// NewLoader creates a collection loader
func NewLoader(source AlbumSource, holder *Holder, opts MatchOptions, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loader{
		source: source,
		holder: holder,
		opts:   opts,
		logger: logger,
	}
}

// Load runs one full fetch pass. Each completed page is folded into a new
// index that replaces the published one, so readers only ever observe fully
// built snapshots. A failed page aborts the pass; whatever was already
// published stays available.
func (l *Loader) Load(ctx context.Context) (*Index, error) {
	var albums []models.Album
	var index *Index

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return index, err
		}

		pageAlbums, more, err := l.source.FetchPage(ctx, page)
		if err != nil {
			return index, fmt.Errorf("failed to fetch collection page %d: %w", page, err)
		}

		albums = append(albums, pageAlbums...)
		index, err = Build(albums, l.opts)
		if err != nil {
			return nil, fmt.Errorf("failed to index collection: %w", err)
		}
		l.holder.Swap(index)

		l.logger.WithFields(logrus.Fields{
			"page":   page,
			"albums": index.Size(),
		}).Debug("Collection page indexed")

		if !more {
			break
		}
	}

	l.logger.WithField("albums", index.Size()).Info("Collection load complete")
	return index, nil
}
