package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"spindle/internal/collection"
	"spindle/internal/ledger"
	"spindle/internal/recognizer"
	"spindle/internal/resolver"
	"spindle/internal/stats"
	"spindle/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultMaxGap caps the listening time inferred from the gap between two
// consecutive detections. A turntable left spinning overnight should not
// credit eight hours to the last recognized album.
const DefaultMaxGap = 30 * time.Minute

// openEntry is the most recent observation of the current session. Its
// duration stays open until the next event (or Stop) supersedes it.
type openEntry struct {
	play models.ResolvedPlay
	at   time.Time
}

// Tracker consumes detection events in arrival order, attributes elapsed
// time to the previously playing album and accumulates it in the ledger.
// Statistics are pulled on demand; subscribers may additionally be nudged
// after every ledger update.
type Tracker struct {
	resolver *resolver.Resolver
	holder   *collection.Holder
	ledger   *ledger.Ledger
	logger   *logrus.Logger
	maxGap   time.Duration

	mutex       sync.Mutex
	sessionID   string
	listening   bool
	open        *openEntry
	subscribers []chan struct{}
}

// NewTracker creates a tracker. A non-positive maxGap falls back to
// DefaultMaxGap.
func NewTracker(res *resolver.Resolver, holder *collection.Holder, led *ledger.Ledger, maxGap time.Duration, logger *logrus.Logger) *Tracker {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Tracker{
		resolver: res,
		holder:   holder,
		ledger:   led,
		logger:   logger,
		maxGap:   maxGap,
	}
}

// Start opens a new listening session. Accumulated ledger state from
// earlier sessions is kept. Starting while already listening is a no-op.
func (t *Tracker) Start() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.listening {
		return t.sessionID
	}
	t.sessionID = uuid.New().String()
	t.listening = true
	t.open = nil

	t.logger.WithField("session_id", t.sessionID).Info("Listening session started")
	return t.sessionID
}

// Stop closes the session as of the given timestamp. The open entry is
// credited up to that instant; the ledger itself is untouched.
func (t *Tracker) Stop(at time.Time) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.listening {
		return
	}
	t.closeOpenEntry(at)
	t.listening = false
	t.open = nil

	t.logger.WithField("session_id", t.sessionID).Info("Listening session stopped")
}

// Listening reports whether a session is currently active
func (t *Tracker) Listening() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.listening
}

// Observe processes one detection event. The gap since the previous event
// is attributed to the previously playing album, then the event itself is
// resolved and becomes the new open entry. Events outside an active
// session are dropped. Callers must deliver events in arrival order.
func (t *Tracker) Observe(event models.DetectionEvent) {
	t.mutex.Lock()
	if !t.listening {
		t.mutex.Unlock()
		return
	}

	credited := t.closeOpenEntry(event.Timestamp)

	play := t.resolver.Resolve(event, t.holder.Get())
	t.open = &openEntry{play: play, at: event.Timestamp}

	if play.Resolved {
		t.logger.WithFields(logrus.Fields{
			"album_id":   play.AlbumID,
			"confidence": play.Confidence,
		}).Debug("Detection resolved")
	}
	t.mutex.Unlock()

	if credited {
		t.notify()
	}
}

// closeOpenEntry credits the gap between the open entry and now to its
// album if it was resolved. Returns true when the ledger changed. Must be
// called with the mutex held.
func (t *Tracker) closeOpenEntry(now time.Time) bool {
	if t.open == nil {
		return false
	}

	gap := now.Sub(t.open.at)
	if gap > t.maxGap {
		gap = t.maxGap
	}
	if gap <= 0 || !t.open.play.Resolved {
		return false
	}

	t.ledger.RecordPlay(t.open.play.AlbumID, int(gap/time.Second))
	return true
}

// Run consumes the source until it ends or the context is cancelled.
// Events are applied strictly in the order the source yields them.
func (t *Tracker) Run(ctx context.Context, source recognizer.Source) error {
	for {
		event, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		t.Observe(event)
	}
}

// Stats derives the current statistics snapshot from the ledger and the
// published collection index
func (t *Tracker) Stats() (models.StatisticsSnapshot, error) {
	return stats.BuildSnapshot(t.ledger.Snapshot(), t.holder.Get())
}

// Subscribe returns a channel that receives a nudge after ledger updates.
// Consumers re-query Stats when nudged; slow consumers simply coalesce
// nudges through the buffered channel.
func (t *Tracker) Subscribe() <-chan struct{} {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	ch := make(chan struct{}, 1)
	t.subscribers = append(t.subscribers, ch)
	return ch
}

func (t *Tracker) notify() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, ch := range t.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
