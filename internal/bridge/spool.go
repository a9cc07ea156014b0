package bridge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bluepond-io/aquamon/internal/lib/logger/sl"
)

// SpoolEntry is one raw sensor line waiting for delivery.
type SpoolEntry struct {
	ID        string
	Line      string
	CreatedAt time.Time
}

// Spool holds sensor lines that could not be delivered, in arrival order,
// so readings survive API outages on the bridge side.
type Spool interface {
	Store(ctx context.Context, line string) error
	Pending(ctx context.Context, limit int) ([]SpoolEntry, error)
	Remove(ctx context.Context, ids []string) error
	Cleanup(ctx context.Context, maxAge time.Duration) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

type SQLiteSpool struct {
	log *slog.Logger
	db  *sql.DB
}

func NewSQLiteSpool(log *slog.Logger, dbPath string) (*SQLiteSpool, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteSpool{
		log: log,
		db:  db,
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteSpool) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS spool (
			id TEXT PRIMARY KEY,
			line TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_spool_created_at ON spool(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteSpool) Store(ctx context.Context, line string) error {
	id := uuid.New().String()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO spool (id, line, created_at) VALUES (?, ?, ?)",
		id,
		line,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store line: %w", err)
	}

	s.log.Debug("line spooled", slog.String("id", id))
	return nil
}

func (s *SQLiteSpool) Pending(ctx context.Context, limit int) ([]SpoolEntry, error) {
	// rowid preserves insertion order exactly; created_at can tie.
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, line, created_at FROM spool ORDER BY rowid ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending lines: %w", err)
	}
	defer rows.Close()

	var entries []SpoolEntry
	for rows.Next() {
		var (
			id, line  string
			createdAt int64
		)
		if err := rows.Scan(&id, &line, &createdAt); err != nil {
			s.log.Error("failed to scan row", sl.Err(err))
			continue
		}

		entries = append(entries, SpoolEntry{
			ID:        id,
			Line:      line,
			CreatedAt: time.Unix(0, createdAt),
		})
	}

	return entries, rows.Err()
}

func (s *SQLiteSpool) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM spool WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to delete line %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debug("spooled lines removed", slog.Int("count", len(ids)))
	return nil
}

func (s *SQLiteSpool) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge).UnixNano()

	result, err := s.db.ExecContext(ctx, "DELETE FROM spool WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old lines: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		s.log.Info("cleaned up old spool entries", slog.Int64("deleted", deleted))
	}

	return nil
}

func (s *SQLiteSpool) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spool").Scan(&count)
	return count, err
}

func (s *SQLiteSpool) Close() error {
	return s.db.Close()
}
