// Package store persists the playback queue across restarts in SQLite.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/domain/track"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	position      INTEGER PRIMARY KEY,
	play_position INTEGER NOT NULL,
	unique_id     TEXT NOT NULL UNIQUE,
	track_id      TEXT NOT NULL,
	name          TEXT NOT NULL,
	album         TEXT NOT NULL,
	album_id      TEXT NOT NULL,
	album_art_url TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL,
	source_uri    TEXT NOT NULL,
	artwork_key   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entry_artists (
	entry_position INTEGER NOT NULL,
	ord            INTEGER NOT NULL,
	name           TEXT NOT NULL,
	PRIMARY KEY (entry_position, ord)
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Meta keys.
const (
	metaCurrent = "current"
	metaRepeat  = "repeat"
	metaShuffle = "shuffle"
	metaSavedAt = "saved_at"
)

// Store saves and loads the queue state.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create store directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SQLite database")
	}
	// One connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create tables")
	}
	zlog.Debug().Msgf("store: opened: path=%s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored queue with state in a single transaction.
func (s *Store) Save(ctx context.Context, state queue.State) error {
	if err := state.Validate(); err != nil {
		return errors.Wrap(err, "refusing to save invalid state")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, table := range []string{"entries", "entry_artists", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Wrapf(err, "failed to clear %s", table)
		}
	}

	playPos := make([]int, len(state.Entries))
	for pos, idx := range state.PlayOrder {
		playPos[idx] = pos
	}

	entryStmt, err := tx.PrepareContext(ctx, `INSERT INTO entries
		(position, play_position, unique_id, track_id, name, album, album_id, album_art_url, duration_ms, source_uri, artwork_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare entry insert")
	}
	defer entryStmt.Close()

	artistStmt, err := tx.PrepareContext(ctx, "INSERT INTO entry_artists (entry_position, ord, name) VALUES (?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "failed to prepare artist insert")
	}
	defer artistStmt.Close()

	for i, e := range state.Entries {
		if _, err := entryStmt.ExecContext(ctx, i, playPos[i], e.UniqueID, e.ID, e.Name, e.Album, e.AlbumID,
			e.AlbumArtURL, e.Duration.Milliseconds(), e.SourceURI, e.ArtworkKey); err != nil {
			return errors.Wrapf(err, "failed to insert entry %d", i)
		}
		for ord, name := range e.Artists {
			if _, err := artistStmt.ExecContext(ctx, i, ord, name); err != nil {
				return errors.Wrapf(err, "failed to insert artist of entry %d", i)
			}
		}
	}

	meta := map[string]string{
		metaCurrent: strconv.Itoa(state.Current),
		metaRepeat:  state.Repeat.String(),
		metaShuffle: strconv.FormatBool(state.Shuffle),
		metaSavedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return errors.Wrapf(err, "failed to write meta %s", k)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit")
	}
	zlog.Debug().Msgf("store: saved: entries=%d current=%d", len(state.Entries), state.Current)
	return nil
}

// Load returns the stored queue. ok is false when nothing has been saved yet.
// A restored non-empty queue comes back paused.
func (s *Store) Load(ctx context.Context) (queue.State, bool, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return queue.State{}, false, err
	}
	if len(meta) == 0 {
		return queue.State{}, false, nil
	}

	state := queue.Empty()
	if state.Current, err = strconv.Atoi(meta[metaCurrent]); err != nil {
		return queue.State{}, false, errors.Wrap(err, "invalid stored current position")
	}
	if state.Repeat, err = queue.ParseRepeatMode(meta[metaRepeat]); err != nil {
		return queue.State{}, false, errors.Wrap(err, "invalid stored repeat mode")
	}
	if state.Shuffle, err = strconv.ParseBool(meta[metaShuffle]); err != nil {
		return queue.State{}, false, errors.Wrap(err, "invalid stored shuffle flag")
	}

	if err := s.loadEntries(ctx, &state); err != nil {
		return queue.State{}, false, err
	}
	if !state.IsEmpty() {
		state.Status = queue.StatusPaused
	}
	if err := state.Validate(); err != nil {
		return queue.State{}, false, errors.Wrap(err, "stored queue is corrupt")
	}

	zlog.Debug().Msgf("store: loaded: entries=%d current=%d saved_at=%s", len(state.Entries), state.Current, meta[metaSavedAt])
	return state, true, nil
}

func (s *Store) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query meta")
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.Wrap(err, "failed to scan meta")
		}
		meta[k] = v
	}
	return meta, errors.Wrap(rows.Err(), "failed to read meta")
}

func (s *Store) loadEntries(ctx context.Context, state *queue.State) error {
	rows, err := s.db.QueryContext(ctx, `SELECT position, play_position, unique_id, track_id, name, album, album_id,
		album_art_url, duration_ms, source_uri, artwork_key FROM entries ORDER BY position`)
	if err != nil {
		return errors.Wrap(err, "failed to query entries")
	}
	defer rows.Close()

	var playPos []int
	for rows.Next() {
		var (
			ref        track.Reference
			pos, play  int
			durationMs int64
		)
		if err := rows.Scan(&pos, &play, &ref.UniqueID, &ref.ID, &ref.Name, &ref.Album, &ref.AlbumID,
			&ref.AlbumArtURL, &durationMs, &ref.SourceURI, &ref.ArtworkKey); err != nil {
			return errors.Wrap(err, "failed to scan entry")
		}
		if pos != len(state.Entries) {
			return errors.Newf("stored entries are not contiguous at position %d", pos)
		}
		ref.Duration = time.Duration(durationMs) * time.Millisecond
		state.Entries = append(state.Entries, ref)
		playPos = append(playPos, play)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "failed to read entries")
	}

	state.PlayOrder = make([]int, len(state.Entries))
	for idx, pos := range playPos {
		if pos < 0 || pos >= len(playPos) {
			return errors.Newf("stored play position %d out of range", pos)
		}
		state.PlayOrder[pos] = idx
	}

	return s.loadArtists(ctx, state.Entries)
}

func (s *Store) loadArtists(ctx context.Context, entries []track.Reference) error {
	rows, err := s.db.QueryContext(ctx, "SELECT entry_position, name FROM entry_artists ORDER BY entry_position, ord")
	if err != nil {
		return errors.Wrap(err, "failed to query artists")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos  int
			name string
		)
		if err := rows.Scan(&pos, &name); err != nil {
			return errors.Wrap(err, "failed to scan artist")
		}
		if pos < 0 || pos >= len(entries) {
			continue
		}
		entries[pos].Artists = append(entries[pos].Artists, name)
	}
	return errors.Wrap(rows.Err(), "failed to read artists")
}
