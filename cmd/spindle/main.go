package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spindle/internal/collection"
	"spindle/internal/config"
	"spindle/internal/discogs"
	"spindle/internal/ledger"
	"spindle/internal/recognizer"
	"spindle/internal/resolver"
	"spindle/internal/session"
	"spindle/internal/similarity"
	"spindle/internal/stats"
	"spindle/internal/store"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Optional .env for the Discogs token
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	applyLogging(logger, cfg.Logging)

	if cfg.Discogs.Username == "" {
		logger.Fatal("No Discogs username configured. Set discogs.username in config.toml.")
	}

	// Open the local store and restore accumulated listening time
	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error opening store")
	}
	defer st.Close()

	led := ledger.New()
	if saved, err := st.LoadLedger(); err != nil {
		logger.WithError(err).Warn("Could not restore ledger")
	} else if len(saved) > 0 {
		led.Replace(saved)
		logger.WithField("albums", len(saved)).Info("Ledger restored")
	}

	matchOpts := collection.MatchOptions{
		Scorer:       similarity.New(cfg.Matching.Algorithm),
		TitleWeight:  cfg.Matching.TitleWeight,
		ArtistWeight: cfg.Matching.ArtistWeight,
		Epsilon:      cfg.Matching.Epsilon,
	}

	// Seed the index from the cached collection so detections resolve
	// before the first fetch pass completes
	holder := collection.NewHolder()
	if cached, err := st.LoadAlbums(); err != nil {
		logger.WithError(err).Warn("Could not read cached collection")
	} else if len(cached) > 0 {
		if index, err := collection.Build(cached, matchOpts); err != nil {
			logger.WithError(err).Warn("Cached collection is inconsistent, refetching")
		} else {
			holder.Swap(index)
			logger.WithField("albums", index.Size()).Info("Collection restored from cache")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Refresh the collection in the background
	client := discogs.NewClient(discogs.Options{
		Token:          os.Getenv("DISCOGS_TOKEN"),
		Username:       cfg.Discogs.Username,
		PerPage:        cfg.Discogs.PerPage,
		RequestsPerMin: cfg.Discogs.RequestsPerMin,
		FetchTracks:    cfg.Discogs.FetchTracks,
	}, logger)
	loader := collection.NewLoader(client, holder, matchOpts, logger)
	go func() {
		index, err := loader.Load(ctx)
		if err != nil {
			logger.WithError(err).Warn("Collection fetch incomplete")
			return
		}
		if err := st.SaveAlbums(index.Albums()); err != nil {
			logger.WithError(err).Warn("Could not cache collection")
		}
	}()

	// Start the listening session
	res := resolver.New(similarity.New(cfg.Matching.Algorithm), cfg.Matching.Threshold, cfg.Matching.Epsilon, logger)
	maxGap := time.Duration(cfg.Session.MaxGapMinutes) * time.Minute
	tracker := session.NewTracker(res, holder, led, maxGap, logger)
	tracker.Start()

	go logStatsOnChange(tracker, logger)

	// Consume the recognizer feed from stdin
	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx, recognizer.NewJSONLines(os.Stdin))
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case <-c:
		logger.Info("Received shutdown signal")
	case err := <-done:
		if err != nil && err != context.Canceled {
			logger.WithError(err).Error("Recognizer feed failed")
		} else {
			logger.Info("Recognizer feed ended")
		}
	}

	tracker.Stop(time.Now())
	cancel()

	if err := st.SaveLedger(led.Snapshot()); err != nil {
		logger.WithError(err).Error("Could not persist ledger")
	}
	logFinalStats(tracker, logger)
}

// applyLogging reconfigures the logger from the loaded configuration
func applyLogging(logger *logrus.Logger, cfg config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

// logStatsOnChange reports headline figures whenever listening time is
// credited
func logStatsOnChange(tracker *session.Tracker, logger *logrus.Logger) {
	for range tracker.Subscribe() {
		snapshot, err := tracker.Stats()
		if err != nil {
			continue // below the reporting floor, nothing to say yet
		}
		logger.WithFields(logrus.Fields{
			"top_album":     snapshot.TopAlbum.Album.Title,
			"top_artist":    snapshot.TopArtist.Artist,
			"total_seconds": snapshot.TotalSeconds,
		}).Debug("Statistics updated")
	}
}

// logFinalStats prints the session summary on shutdown
func logFinalStats(tracker *session.Tracker, logger *logrus.Logger) {
	snapshot, err := tracker.Stats()
	if err == stats.ErrInsufficientData {
		logger.Info("Not enough listening data for statistics yet")
		return
	}
	if err != nil {
		logger.WithError(err).Warn("No statistics available")
		return
	}

	logger.WithFields(logrus.Fields{
		"top_album":        snapshot.TopAlbum.Album.Title,
		"top_album_secs":   snapshot.TopAlbum.Seconds,
		"least_album":      snapshot.LeastAlbum.Album.Title,
		"top_artist":       snapshot.TopArtist.Artist,
		"top_artist_mins":  snapshot.TopArtist.Minutes,
		"distinct_albums":  snapshot.DistinctAlbums,
		"distinct_artists": snapshot.DistinctArtists,
		"total_seconds":    snapshot.TotalSeconds,
	}).Info("Session statistics")

	for _, genre := range snapshot.Genres {
		logger.WithFields(logrus.Fields{
			"genre":      genre.Genre,
			"seconds":    genre.Seconds,
			"percentage": genre.Percentage,
		}).Info("Genre listening time")
	}
}
