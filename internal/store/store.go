package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"peerscout/internal/model"
)

// ErrNoRow is returned when a keyed lookup finds nothing.
var ErrNoRow = errors.New("store: no row")

// DB wraps the SQLite database holding sessions, metadata, and derived state.
// All writes are keyed upserts: concurrent writers race per record, never on
// the whole collection.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
	  url TEXT PRIMARY KEY,
	  data TEXT NOT NULL,
	  last_update INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS metadata (
	  short_uuid TEXT PRIMARY KEY,
	  data TEXT NOT NULL,
	  unavailable INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS seen (
	  short_uuid TEXT PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS ranking (
	  id INTEGER PRIMARY KEY CHECK (id=1),
	  data TEXT NOT NULL,
	  updated INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// UpsertSession writes one session record keyed by URL.
func (d *DB) UpsertSession(ctx context.Context, s model.WatchSession) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO sessions(url, data, last_update) VALUES(?,?,?)
		 ON CONFLICT(url) DO UPDATE SET data=excluded.data, last_update=excluded.last_update`,
		s.URL, string(b), s.LastUpdate.Unix())
	return err
}

func (d *DB) GetSession(ctx context.Context, url string) (model.WatchSession, error) {
	var s model.WatchSession
	var raw string
	err := d.sql.QueryRowContext(ctx, `SELECT data FROM sessions WHERE url=?`, url).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNoRow
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("decode session %s: %w", url, err)
	}
	return s, nil
}

func (d *DB) ListSessions(ctx context.Context) ([]model.WatchSession, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT data FROM sessions ORDER BY last_update`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WatchSession
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var s model.WatchSession
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertMetadata writes one metadata record keyed by short identifier.
func (d *DB) UpsertMetadata(ctx context.Context, m model.VideoMetadata) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	unavailable := 0
	if m.Unavailable {
		unavailable = 1
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO metadata(short_uuid, data, unavailable) VALUES(?,?,?)
		 ON CONFLICT(short_uuid) DO UPDATE SET data=excluded.data, unavailable=excluded.unavailable`,
		m.ShortUUID, string(b), unavailable)
	return err
}

func (d *DB) GetMetadata(ctx context.Context, shortUUID string) (model.VideoMetadata, error) {
	var m model.VideoMetadata
	var raw string
	err := d.sql.QueryRowContext(ctx, `SELECT data FROM metadata WHERE short_uuid=?`, shortUUID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNoRow
	}
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, fmt.Errorf("decode metadata %s: %w", shortUUID, err)
	}
	return m, nil
}

func (d *DB) HasMetadata(ctx context.Context, shortUUID string) (bool, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(1) FROM metadata WHERE short_uuid=?`, shortUUID).Scan(&n)
	return n > 0, err
}

func (d *DB) ListMetadata(ctx context.Context) ([]model.VideoMetadata, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT data FROM metadata ORDER BY short_uuid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.VideoMetadata
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var m model.VideoMetadata
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddSeen marks an identifier as explicitly seen.
func (d *DB) AddSeen(ctx context.Context, shortUUID string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO seen(short_uuid) VALUES(?) ON CONFLICT(short_uuid) DO NOTHING`, shortUUID)
	return err
}

func (d *DB) ListSeen(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT short_uuid FROM seen`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SaveRanking caches the latest ranked list for display. Single row,
// last-write-wins.
func (d *DB) SaveRanking(ctx context.Context, results []model.SimilarityResult, at time.Time) error {
	b, err := json.Marshal(results)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO ranking(id, data, updated) VALUES(1,?,?)
		 ON CONFLICT(id) DO UPDATE SET data=excluded.data, updated=excluded.updated`,
		string(b), at.Unix())
	return err
}

func (d *DB) LoadRanking(ctx context.Context) ([]model.SimilarityResult, time.Time, error) {
	var raw string
	var updated int64
	err := d.sql.QueryRowContext(ctx, `SELECT data, updated FROM ranking WHERE id=1`).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoRow
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	var out []model.SimilarityResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, time.Time{}, err
	}
	return out, time.Unix(updated, 0).UTC(), nil
}

// SaveCursor stores a named string cursor.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value)
	return err
}

func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRow
	}
	return v, err
}

// Clear drops all stored state. User-triggered only.
func (d *DB) Clear(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx,
		`DELETE FROM sessions; DELETE FROM metadata; DELETE FROM seen; DELETE FROM ranking; DELETE FROM cursors;`)
	return err
}
