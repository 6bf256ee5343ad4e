package broadcast

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// SQLiteStore is the durable Store implementation. Start times are stored
// as epoch milliseconds in UTC; both replace operations run inside a
// single transaction so readers never observe a half-written day.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs
// migrations. WAL mode plus a busy timeout suits the read-heavy
// resolution workload.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		always_live INTEGER NOT NULL DEFAULT 0,
		live_ref TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS programs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id INTEGER NOT NULL,
		start_ms INTEGER NOT NULL,
		duration_seconds REAL NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		media_ref TEXT NOT NULL DEFAULT '',
		poster_ref TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_programs_channel_start ON programs(channel_id, start_ms);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertChannel implements Store.UpsertChannel.
func (s *SQLiteStore) UpsertChannel(ctx context.Context, ch Channel) error {
	now := time.Now().UTC().UnixMilli()
	query := `
	INSERT INTO channels (id, name, slug, always_live, live_ref, enabled, created_at_ms, updated_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		slug = excluded.slug,
		always_live = excluded.always_live,
		live_ref = excluded.live_ref,
		enabled = excluded.enabled,
		updated_at_ms = excluded.updated_at_ms
	`
	_, err := s.db.ExecContext(ctx, query,
		int64(ch.ID), ch.Name, ch.Slug, boolInt(ch.AlwaysLive), ch.LiveRef, boolInt(ch.Enabled), now, now)
	return err
}

// GetChannel implements Store.GetChannel.
func (s *SQLiteStore) GetChannel(ctx context.Context, id ChannelID) (Channel, error) {
	query := `
	SELECT id, name, slug, always_live, live_ref, enabled, created_at_ms, updated_at_ms
	FROM channels WHERE id = ?
	`
	ch, err := scanChannel(s.db.QueryRowContext(ctx, query, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// ListChannels implements Store.ListChannels, ordered by id.
func (s *SQLiteStore) ListChannels(ctx context.Context) ([]Channel, error) {
	query := `
	SELECT id, name, slug, always_live, live_ref, enabled, created_at_ms, updated_at_ms
	FROM channels ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ReplaceDay implements Store.ReplaceDay.
func (s *SQLiteStore) ReplaceDay(ctx context.Context, id ChannelID, day time.Time, rows []Program) (int, error) {
	lo := day.UTC().Truncate(24 * time.Hour)
	hi := lo.Add(24 * time.Hour)
	return s.replace(ctx, id, lo.UnixMilli(), hi.UnixMilli()-1, rows)
}

// ReplaceRange implements Store.ReplaceRange.
func (s *SQLiteStore) ReplaceRange(ctx context.Context, id ChannelID, lo, hi time.Time, rows []Program) (int, error) {
	return s.replace(ctx, id, lo.UnixMilli(), hi.UnixMilli(), rows)
}

// replace deletes rows with start_ms in [loMs, hiMs] and inserts the
// replacements, all in one transaction.
func (s *SQLiteStore) replace(ctx context.Context, id ChannelID, loMs, hiMs int64, rows []Program) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM programs WHERE channel_id = ? AND start_ms BETWEEN ? AND ?`,
		int64(id), loMs, hiMs); err != nil {
		return 0, fmt.Errorf("delete range: %w", err)
	}
	if err := insertRows(ctx, tx, id, rows); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return len(rows), nil
}

// InsertPrograms implements Store.InsertPrograms.
func (s *SQLiteStore) InsertPrograms(ctx context.Context, rows []Program) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range rows {
		if err := insertRows(ctx, tx, p.ChannelID, []Program{p}); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return len(rows), nil
}

// StartedBefore implements Store.StartedBefore.
func (s *SQLiteStore) StartedBefore(ctx context.Context, id ChannelID, now time.Time, limit int) ([]Program, error) {
	query := `
	SELECT id, channel_id, start_ms, duration_seconds, title, media_ref, poster_ref
	FROM programs WHERE channel_id = ? AND start_ms <= ?
	ORDER BY start_ms DESC LIMIT ?
	`
	return s.queryPrograms(ctx, query, int64(id), now.UnixMilli(), limit)
}

// UpcomingAfter implements Store.UpcomingAfter.
func (s *SQLiteStore) UpcomingAfter(ctx context.Context, id ChannelID, now time.Time, limit int) ([]Program, error) {
	query := `
	SELECT id, channel_id, start_ms, duration_seconds, title, media_ref, poster_ref
	FROM programs WHERE channel_id = ? AND start_ms > ?
	ORDER BY start_ms ASC LIMIT ?
	`
	return s.queryPrograms(ctx, query, int64(id), now.UnixMilli(), limit)
}

// RangeAsc implements Store.RangeAsc.
func (s *SQLiteStore) RangeAsc(ctx context.Context, id ChannelID, lo, hi time.Time) ([]Program, error) {
	query := `
	SELECT id, channel_id, start_ms, duration_seconds, title, media_ref, poster_ref
	FROM programs WHERE channel_id = ? AND start_ms BETWEEN ? AND ?
	ORDER BY start_ms ASC
	`
	return s.queryPrograms(ctx, query, int64(id), lo.UnixMilli(), hi.UnixMilli())
}

func (s *SQLiteStore) queryPrograms(ctx context.Context, query string, args ...any) ([]Program, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Program
	for rows.Next() {
		var p Program
		var chID, startMs int64
		if err := rows.Scan(&p.ID, &chID, &startMs, &p.DurationSeconds, &p.Title, &p.MediaRef, &p.PosterRef); err != nil {
			return nil, err
		}
		p.ChannelID = ChannelID(chID)
		p.Start = time.UnixMilli(startMs).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func insertRows(ctx context.Context, tx *sql.Tx, id ChannelID, rows []Program) error {
	for _, p := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO programs (channel_id, start_ms, duration_seconds, title, media_ref, poster_ref)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			int64(id), p.Start.UTC().UnixMilli(), p.DurationSeconds, p.Title, p.MediaRef, p.PosterRef); err != nil {
			return fmt.Errorf("insert program: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (Channel, error) {
	var ch Channel
	var id, alwaysLive, enabled, createdMs, updatedMs int64
	if err := row.Scan(&id, &ch.Name, &ch.Slug, &alwaysLive, &ch.LiveRef, &enabled, &createdMs, &updatedMs); err != nil {
		return Channel{}, err
	}
	ch.ID = ChannelID(id)
	ch.AlwaysLive = alwaysLive != 0
	ch.Enabled = enabled != 0
	ch.CreatedAt = time.UnixMilli(createdMs).UTC()
	ch.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return ch, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
