package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"termagent/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.AuditLogger using SQLite. It is write-mostly:
// entries are never read back into a session.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.AuditLogger = (*SQLiteStore)(nil)

// Record is a stored audit entry.
type Record struct {
	ID        int64
	CreatedAt time.Time
	domain.AuditEntry
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	logger.Debug("audit store opened", "path", dbPath)
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT,
		action      TEXT NOT NULL,
		tool_name   TEXT,
		command     TEXT,
		result      TEXT,
		details     TEXT,
		duration_ms INTEGER DEFAULT 0,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_log(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) LogAudit(ctx context.Context, entry domain.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (session_id, action, tool_name, command, result, details, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.Action, entry.ToolName, entry.Command, entry.Result, entry.Details,
		entry.Duration.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-empty sessionID
// restricts the result to that session.
func (s *SQLiteStore) Recent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, session_id, action, tool_name, command, result, details, duration_ms, created_at
		FROM audit_log`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var durationMs int64
		var sid, tool, cmd, result, details sql.NullString
		if err := rows.Scan(&r.ID, &sid, &r.Action, &tool, &cmd, &result, &details, &durationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.SessionID, r.ToolName, r.Command = sid.String, tool.String, cmd.String
		r.Result, r.Details = result.String, details.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
