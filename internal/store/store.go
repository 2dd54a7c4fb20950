// Package store persists conformance reports in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/funvibe/polyglot/pkg/conformance"
	"github.com/funvibe/polyglot/pkg/trait"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	id       TEXT NOT NULL UNIQUE,
	subject  TEXT NOT NULL,
	declared INTEGER NOT NULL,
	detected INTEGER NOT NULL,
	checks   INTEGER NOT NULL,
	started  INTEGER NOT NULL,
	duration INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS failures (
	report_id  TEXT NOT NULL REFERENCES reports(id),
	pos        INTEGER NOT NULL,
	path       TEXT NOT NULL,
	trait      TEXT NOT NULL,
	check_name TEXT NOT NULL,
	message    TEXT NOT NULL,
	PRIMARY KEY (report_id, pos)
);
`

// ErrNotFound is returned for unknown report IDs.
var ErrNotFound = errors.New("report not found")

// Store is a report database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" opens a private
// in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if path == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores r and its failures in one transaction. A report without an
// ID gets a fresh one.
func (s *Store) Save(ctx context.Context, r *conformance.Report) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, subject, declared, detected, checks, started, duration) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Subject, int64(r.Declared), int64(r.Detected), r.Checks, r.Started.UnixNano(), int64(r.Duration))
	if err != nil {
		return fmt.Errorf("saving report %s: %w", r.ID, err)
	}
	for i, f := range r.Failures {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO failures (report_id, pos, path, trait, check_name, message) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID.String(), i, f.Path, f.Trait, f.Check, f.Message)
		if err != nil {
			return fmt.Errorf("saving failure %d of report %s: %w", i, r.ID, err)
		}
	}
	return tx.Commit()
}

// Filter narrows List.
type Filter struct {
	// FailedOnly keeps reports with at least one failure.
	FailedOnly bool
	// Limit keeps the most recent reports; zero means all.
	Limit int
}

// List returns stored reports in creation order, failures included.
func (s *Store) List(ctx context.Context, f Filter) ([]*conformance.Report, error) {
	query := `SELECT id, subject, declared, detected, checks, started, duration FROM reports`
	if f.FailedOnly {
		query += ` WHERE EXISTS (SELECT 1 FROM failures WHERE failures.report_id = reports.id)`
	}
	query += ` ORDER BY seq DESC`
	var args []any
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	var out []*conformance.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest first from the query; callers get oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	for _, r := range out {
		if r.Failures, err = s.Failures(ctx, r.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get returns one report, failures included.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*conformance.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, declared, detected, checks, started, duration FROM reports WHERE id = ?`, id.String())
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if r.Failures, err = s.Failures(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

// Failures returns the failures of one report in their original order.
func (s *Store) Failures(ctx context.Context, id uuid.UUID) ([]conformance.Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, trait, check_name, message FROM failures WHERE report_id = ? ORDER BY pos`, id.String())
	if err != nil {
		return nil, fmt.Errorf("loading failures of %s: %w", id, err)
	}
	defer rows.Close()

	var out []conformance.Failure
	for rows.Next() {
		var f conformance.Failure
		if err := rows.Scan(&f.Path, &f.Trait, &f.Check, &f.Message); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes a report and its failures.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM failures WHERE report_id = ?`, id.String()); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (*conformance.Report, error) {
	var (
		id                 string
		r                  conformance.Report
		declared, detected int64
		started, duration  int64
	)
	if err := sc.Scan(&id, &r.Subject, &declared, &detected, &r.Checks, &started, &duration); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt report id %q: %w", id, err)
	}
	r.ID = parsed
	r.Declared = trait.Set(declared)
	r.Detected = trait.Set(detected)
	r.Started = time.Unix(0, started)
	r.Duration = time.Duration(duration)
	return &r, nil
}
