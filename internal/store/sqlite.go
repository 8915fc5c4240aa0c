package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/msbkit/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

const eventColumns = `id, msbtid, checksum, new_checksum, projectid, title, status, remaining, label, comment, created_at`

func (s *SQLiteStore) RecordEvent(ctx context.Context, ev *model.DoneEvent) error {
	if !ev.Status.IsValid() {
		return &model.InvalidStatusError{Status: string(ev.Status)}
	}
	if ev.Checksum == "" {
		return fmt.Errorf("record event: empty checksum")
	}
	if ev.ID == "" {
		ev.ID = model.NewEventID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.logger.Debug("sql", "op", "insert", "table", "msb_done", "id", ev.ID, "status", ev.Status)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO msb_done (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.MSBTID, ev.Checksum, ev.NewChecksum, ev.ProjectID, ev.Title, string(ev.Status),
		ev.Remaining, ev.Label, ev.Comment, ev.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*model.DoneEvent, error) {
	s.logger.Debug("sql", "op", "select", "table", "msb_done", "id", id)

	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM msb_done WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Resource: "Event", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, opts model.ListOptions) ([]*model.DoneEvent, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "msb_done", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any
	if opts.Checksum != "" {
		whereClauses = append(whereClauses, "checksum = ?")
		countArgs = append(countArgs, opts.Checksum)
	}
	if opts.ProjectID != "" {
		whereClauses = append(whereClauses, "projectid = ?")
		countArgs = append(countArgs, opts.ProjectID)
	}
	if opts.Status != "" {
		whereClauses = append(whereClauses, "status = ?")
		countArgs = append(countArgs, string(opts.Status))
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM msb_done`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + eventColumns + ` FROM msb_done` + whereSQL +
		` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*model.DoneEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

func (s *SQLiteStore) ObservationCount(ctx context.Context, checksum string) (int, error) {
	s.logger.Debug("sql", "op", "count", "table", "msb_done", "checksum", checksum)

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE status WHEN ? THEN 1 WHEN ? THEN -1 ELSE 0 END), 0)
		 FROM msb_done WHERE checksum = ?`,
		string(model.EventObserved), string(model.EventUnobserved), checksum,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*model.DoneEvent, error) {
	var ev model.DoneEvent
	var status, createdAt string
	if err := sc.Scan(&ev.ID, &ev.MSBTID, &ev.Checksum, &ev.NewChecksum, &ev.ProjectID, &ev.Title,
		&status, &ev.Remaining, &ev.Label, &ev.Comment, &createdAt); err != nil {
		return nil, err
	}
	ev.Status = model.EventStatus(status)
	ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &ev, nil
}
