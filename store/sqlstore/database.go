// Package sqlstore keeps the job collection in a SQL table. MySQL,
// PostgreSQL and SQLite are supported through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sky93/queuectl"
)

// Table is the name of the jobs table created by the migrations.
const Table = "queuectl_jobs"

const columns = "id, command, state, attempts, max_retries, created_at, updated_at, next_retry_at, output"

// Store is a queuectl.Store backed by a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database. The schema must already exist; see Migrate.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// LoadAll reads every row in insertion order. Rows that cannot be decoded
// yield ErrCorruptStore.
func (s *Store) LoadAll(ctx context.Context) ([]queuectl.JobRecord, error) {
	query := `SELECT ` + columns + ` FROM ` + Table + ` ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []queuectl.JobRecord
	for rows.Next() {
		var (
			rec                  queuectl.JobRecord
			state                string
			createdAt, updatedAt string
			nextRetryAt, output  sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Command,
			&state,
			&rec.Attempts,
			&rec.MaxRetries,
			&createdAt,
			&updatedAt,
			&nextRetryAt,
			&output,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}

		rec.State = queuectl.JobState(state)
		if !rec.State.Valid() {
			return nil, fmt.Errorf("%w: job %s has unknown state %q", queuectl.ErrCorruptStore, rec.ID, state)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: job %s created_at: %v", queuectl.ErrCorruptStore, rec.ID, err)
		}
		if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("%w: job %s updated_at: %v", queuectl.ErrCorruptStore, rec.ID, err)
		}
		if nextRetryAt.Valid {
			t, err := parseTime(nextRetryAt.String)
			if err != nil {
				return nil, fmt.Errorf("%w: job %s next_retry_at: %v", queuectl.ErrCorruptStore, rec.ID, err)
			}
			rec.NextRetryAt = &t
		}
		if output.Valid {
			rec.Output = output.String
		}
		jobs = append(jobs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// SaveAll replaces the table contents with jobs inside one transaction.
func (s *Store) SaveAll(ctx context.Context, jobs []queuectl.JobRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+Table); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}

	if len(jobs) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.insertQuery())
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, j := range jobs {
			var nextRetryAt, output any
			if j.NextRetryAt != nil {
				nextRetryAt = formatTime(*j.NextRetryAt)
			}
			if j.Output != "" {
				output = j.Output
			}
			if _, err := stmt.ExecContext(ctx,
				i,
				j.ID,
				j.Command,
				string(j.State),
				j.Attempts,
				j.MaxRetries,
				formatTime(j.CreatedAt),
				formatTime(j.UpdatedAt),
				nextRetryAt,
				output,
			); err != nil {
				return fmt.Errorf("insert job %s: %w", j.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) insertQuery() string {
	ph := make([]string, 10)
	for i := range ph {
		ph[i] = s.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (seq, %s) VALUES (%s)", Table, columns, strings.Join(ph, ", "))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
