package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"spindle/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps a *sql.DB holding the device-local cache: accumulated
// per-album listening seconds and the last fetched collection. It is safe
// for concurrent use because the underlying *sql.DB is concurrency-safe.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger

	upsertSecondsStmt *sql.Stmt
	upsertAlbumStmt   *sql.Stmt
}

// Open opens (or creates) the SQLite store at the provided path, ensures
// the tables exist and applies WAL pragmas. Caller should Close() it when
// finished.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := sql.Open("sqlite3", path+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// SQLite works better with fewer connections
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	s := &Store{conn: conn, logger: logger}

	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("path", path).Info("Store opened")
	return s, nil
}

// createTables creates tables if they do not already exist. Idempotent.
func (s *Store) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ledger (
			album_id INTEGER PRIMARY KEY,
			seconds INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS albums (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			year INTEGER DEFAULT 0,
			styles TEXT NOT NULL DEFAULT '[]',
			tracks TEXT NOT NULL DEFAULT '[]',
			cover_url TEXT NOT NULL DEFAULT '',
			cached_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) prepareStatements() error {
	var err error

	s.upsertSecondsStmt, err = s.conn.Prepare(`
		INSERT INTO ledger (album_id, seconds, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(album_id) DO UPDATE SET seconds = excluded.seconds, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger upsert: %w", err)
	}

	s.upsertAlbumStmt, err = s.conn.Prepare(`
		INSERT INTO albums (id, title, artist, year, styles, tracks, cover_url, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, artist = excluded.artist, year = excluded.year,
			styles = excluded.styles, tracks = excluded.tracks,
			cover_url = excluded.cover_url, cached_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare album upsert: %w", err)
	}

	return nil
}

// SaveLedger persists the full set of accumulated totals in one transaction
func (s *Store) SaveLedger(seconds map[int]int) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.Stmt(s.upsertSecondsStmt)
	for albumID, secs := range seconds {
		if _, err := stmt.Exec(albumID, secs); err != nil {
			return fmt.Errorf("failed to save ledger entry %d: %w", albumID, err)
		}
	}
	return tx.Commit()
}

// LoadLedger restores persisted accumulated totals
func (s *Store) LoadLedger() (map[int]int, error) {
	rows, err := s.conn.Query("SELECT album_id, seconds FROM ledger")
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer rows.Close()

	seconds := make(map[int]int)
	for rows.Next() {
		var albumID, secs int
		if err := rows.Scan(&albumID, &secs); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		seconds[albumID] = secs
	}
	return seconds, rows.Err()
}

// ClearLedger drops all persisted totals (session-boundary reset)
func (s *Store) ClearLedger() error {
	_, err := s.conn.Exec("DELETE FROM ledger")
	if err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	return nil
}

// SaveAlbums replaces the cached collection with the given albums
func (s *Store) SaveAlbums(albums []models.Album) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM albums"); err != nil {
		return fmt.Errorf("failed to clear album cache: %w", err)
	}

	stmt := tx.Stmt(s.upsertAlbumStmt)
	for _, album := range albums {
		styles, err := json.Marshal(album.Styles)
		if err != nil {
			return fmt.Errorf("failed to encode styles for album %d: %w", album.ID, err)
		}
		tracks, err := json.Marshal(album.Tracks)
		if err != nil {
			return fmt.Errorf("failed to encode tracks for album %d: %w", album.ID, err)
		}
		if _, err := stmt.Exec(album.ID, album.Title, album.Artist, album.Year, string(styles), string(tracks), album.CoverURL); err != nil {
			return fmt.Errorf("failed to save album %d: %w", album.ID, err)
		}
	}
	return tx.Commit()
}

// LoadAlbums returns the cached collection in ascending id order
func (s *Store) LoadAlbums() ([]models.Album, error) {
	rows, err := s.conn.Query("SELECT id, title, artist, year, styles, tracks, cover_url FROM albums ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to load albums: %w", err)
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		var album models.Album
		var styles, tracks string
		if err := rows.Scan(&album.ID, &album.Title, &album.Artist, &album.Year, &styles, &tracks, &album.CoverURL); err != nil {
			return nil, fmt.Errorf("failed to scan album row: %w", err)
		}
		if err := json.Unmarshal([]byte(styles), &album.Styles); err != nil {
			return nil, fmt.Errorf("failed to decode styles for album %d: %w", album.ID, err)
		}
		if err := json.Unmarshal([]byte(tracks), &album.Tracks); err != nil {
			return nil, fmt.Errorf("failed to decode tracks for album %d: %w", album.ID, err)
		}
		albums = append(albums, album)
	}
	return albums, rows.Err()
}

// Close releases prepared statements and the connection
func (s *Store) Close() error {
	if s.upsertSecondsStmt != nil {
		s.upsertSecondsStmt.Close()
	}
	if s.upsertAlbumStmt != nil {
		s.upsertAlbumStmt.Close()
	}
	return s.conn.Close()
}
