// Package catalog is the persistent store of session summaries, watermarks
// and workspace mappings, backed by SQLite.
//
// Writes are serialized through the Store; reads run concurrently with them
// under SQLite's WAL journal.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/curlens/pkg/index"
	"github.com/papercomputeco/curlens/pkg/workspace"
)

// ErrNotFound is returned when no catalog entry exists for a session.
var ErrNotFound = errors.New("catalog entry not found")

// ErrStaleWatermark is returned by Commit when the stored watermark is
// already at or past the one being committed. Nothing is written.
var ErrStaleWatermark = errors.New("watermark already at or past commit")

// Entry is the searchable projection of one summarized session.
type Entry struct {
	SessionID     string    `json:"session_id"`
	WorkspacePath string    `json:"workspace_path"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Stats describes the catalog contents.
type Stats struct {
	Entries     int       `json:"entries"`
	Watermarks  int       `json:"watermarks"`
	Workspaces  int       `json:"workspaces"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store is the SQLite-backed catalog.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the catalog at path and migrates its schema.
// The path can be a file path or ":memory:" for an in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_fk=1&_journal_mode=WAL&_busy_timeout=5000", path)
	memory := path == ":memory:"
	if memory {
		dsn = "file::memory:?_fk=1"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	m, err := schema.NewMigrate(entsql.OpenDB(dialect.SQLite, db))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare migration: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

var entryColumns = []string{"session_id", "workspace_path", "title", "summary", "created_at", "updated_at"}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                Entry
		created, updated int64
	)
	if err := row.Scan(&e.SessionID, &e.WorkspacePath, &e.Title, &e.Summary, &created, &updated); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}

// Get returns the entry of a session, or ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Entry, error) {
	query, args := builder().
		Select(entryColumns...).
		From(entsql.Table(summariesTable)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading entry %s: %w", sessionID, err)
	}

	return &e, nil
}

// List returns entries updated at or after since, most recent first. A zero
// since returns the whole catalog.
func (s *Store) List(ctx context.Context, since time.Time) ([]Entry, error) {
	sel := builder().
		Select(entryColumns...).
		From(entsql.Table(summariesTable)).
		OrderBy(entsql.Desc("updated_at"), entsql.Asc("session_id"))
	if !since.IsZero() {
		sel.Where(entsql.GTE("updated_at", toMillis(since)))
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// SessionIDs returns the ids of every catalog entry.
func (s *Store) SessionIDs(ctx context.Context) ([]string, error) {
	return s.column(ctx, summariesTable, "session_id")
}

func (s *Store) column(ctx context.Context, table, name string) ([]string, error) {
	query, args := builder().Select(name).From(entsql.Table(table)).Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s.%s: %w", table, name, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// Watermark returns the watermark of a session, or nil when there is none.
func (s *Store) Watermark(ctx context.Context, sessionID string) (*index.Watermark, error) {
	query, args := builder().
		Select("session_id", "last_seq", "summary", "updated_at").
		From(entsql.Table(watermarksTable)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()

	var (
		wm      index.Watermark
		updated int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&wm.SessionID, &wm.LastSeq, &wm.Summary, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading watermark %s: %w", sessionID, err)
	}
	wm.UpdatedAt = fromMillis(updated)

	return &wm, nil
}

// Commit stores entry and wm in a single transaction. An existing entry
// keeps its CreatedAt.
//
// The watermark only moves forward: when another commit already advanced it
// to wm.LastSeq or beyond, Commit writes nothing and returns
// ErrStaleWatermark.
func (s *Store) Commit(ctx context.Context, entry Entry, wm index.Watermark) error {
	if entry.SessionID == "" || entry.SessionID != wm.SessionID {
		return fmt.Errorf("commit: mismatched session ids %q and %q", entry.SessionID, wm.SessionID)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = entry.UpdatedAt
	}

	entryQuery, entryArgs := builder().
		Insert(summariesTable).
		Columns(entryColumns...).
		Values(entry.SessionID, entry.WorkspacePath, entry.Title, entry.Summary,
			toMillis(entry.CreatedAt), toMillis(entry.UpdatedAt)).
		OnConflict(
			entsql.ConflictColumns("session_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("workspace_path")
				u.SetExcluded("title")
				u.SetExcluded("summary")
				u.SetExcluded("updated_at")
			}),
		).
		Query()

	wmQuery, wmArgs := upsertWatermark(wm)

	return s.tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, wmQuery, wmArgs...)
		if err != nil {
			return fmt.Errorf("upserting watermark: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("upserting watermark: %w", err)
		}
		if n == 0 {
			return ErrStaleWatermark
		}

		if _, err := tx.ExecContext(ctx, entryQuery, entryArgs...); err != nil {
			return fmt.Errorf("upserting entry: %w", err)
		}
		return clearRejection(ctx, tx, entry.SessionID)
	})
}

// upsertWatermark inserts wm or overwrites the stored watermark when wm is
// strictly ahead of it. A conflicting row that is not behind is left alone
// and the statement affects no rows.
func upsertWatermark(wm index.Watermark) (string, []any) {
	return builder().
		Insert(watermarksTable).
		Columns("session_id", "last_seq", "summary", "updated_at").
		Values(wm.SessionID, wm.LastSeq, wm.Summary, toMillis(wm.UpdatedAt)).
		OnConflict(
			entsql.ConflictColumns("session_id"),
			entsql.ResolveWithNewValues(),
			entsql.UpdateWhere(entsql.ExprP(fmt.Sprintf("excluded.last_seq > %s.last_seq", watermarksTable))),
		).
		Query()
}

// ResetWatermark deletes the watermark of a session so it is rebuilt from
// its first message. A recorded rejection goes with it.
func (s *Store) ResetWatermark(ctx context.Context, sessionID string) error {
	query, args := builder().
		Delete(watermarksTable).
		Where(entsql.EQ("session_id", sessionID)).
		Query()

	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		return clearRejection(ctx, tx, sessionID)
	})
}

// RejectedSeq returns the sequence position up to which the session's
// messages were last judged not actionable, or 0.
func (s *Store) RejectedSeq(ctx context.Context, sessionID string) (int64, error) {
	query, args := builder().
		Select("last_seq").
		From(entsql.Table(rejectionsTable)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()

	var seq int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading rejection %s: %w", sessionID, err)
	}
	return seq, nil
}

// Reject records that the messages of a session up to lastSeq produced no
// actionable summary. Like the watermark, the mark only moves forward.
func (s *Store) Reject(ctx context.Context, sessionID string, lastSeq int64) error {
	query, args := builder().
		Insert(rejectionsTable).
		Columns("session_id", "last_seq", "updated_at").
		Values(sessionID, lastSeq, toMillis(time.Now())).
		OnConflict(
			entsql.ConflictColumns("session_id"),
			entsql.ResolveWithNewValues(),
			entsql.UpdateWhere(entsql.ExprP(fmt.Sprintf("excluded.last_seq > %s.last_seq", rejectionsTable))),
		).
		Query()

	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("recording rejection: %w", err)
		}
		return nil
	})
}

func clearRejection(ctx context.Context, tx *sql.Tx, sessionID string) error {
	query, args := builder().
		Delete(rejectionsTable).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clearing rejection: %w", err)
	}
	return nil
}

// Prune deletes the entries, watermarks and rejections of every session not
// in keep and returns how many entries were removed.
func (s *Store) Prune(ctx context.Context, keep []string) (int, error) {
	ids, err := s.SessionIDs(ctx)
	if err != nil {
		return 0, err
	}
	rejected, err := s.column(ctx, rejectionsTable, "session_id")
	if err != nil {
		return 0, err
	}
	ids = append(ids, rejected...)

	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}

	var stale []any
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := kept[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		stale = append(stale, id)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var removed int
	err = s.tx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{summariesTable, watermarksTable, rejectionsTable} {
			query, args := builder().Delete(table).Where(entsql.In("session_id", stale...)).Query()
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("pruning %s: %w", table, err)
			}
			if table == summariesTable {
				n, _ := res.RowsAffected()
				removed = int(n)
			}
		}
		return nil
	})

	return removed, err
}

// Mappings returns every persisted workspace mapping.
func (s *Store) Mappings(ctx context.Context) ([]workspace.Mapping, error) {
	query, args := builder().Select("hash", "path").From(entsql.Table(workspacesTable)).Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	var mappings []workspace.Mapping
	for rows.Next() {
		var m workspace.Mapping
		if err := rows.Scan(&m.Hash, &m.Path); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// SaveMappings persists mappings; a mapping already stored for a hash is
// overwritten.
func (s *Store) SaveMappings(ctx context.Context, mappings []workspace.Mapping) error {
	if len(mappings) == 0 {
		return nil
	}

	ins := builder().Insert(workspacesTable).Columns("hash", "path")
	for _, m := range mappings {
		ins.Values(m.Hash, m.Path)
	}
	query, args := ins.OnConflict(
		entsql.ConflictColumns("hash"),
		entsql.ResolveWithNewValues(),
	).Query()

	return s.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// Stats counts the rows of each table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	counts := []struct {
		table string
		dst   *int
	}{
		{summariesTable, &st.Entries},
		{watermarksTable, &st.Watermarks},
		{workspacesTable, &st.Workspaces},
	}
	for _, c := range counts {
		query, args := builder().Select(entsql.Count("*")).From(entsql.Table(c.table)).Query()
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}

	query, args := builder().
		Select("COALESCE(MAX(updated_at), 0)").
		From(entsql.Table(summariesTable)).
		Query()
	var last int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return Stats{}, fmt.Errorf("reading last update: %w", err)
	}
	st.LastUpdated = fromMillis(last)

	return st, nil
}

func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
