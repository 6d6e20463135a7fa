package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to keep SQLITE_BUSY rare
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		content_length TEXT NOT NULL,
		writing_style TEXT NOT NULL DEFAULT '',
		feedback_json TEXT NOT NULL,
		draft TEXT NOT NULL,
		status TEXT NOT NULL,
		continuation_json TEXT,
		created_at INTEGER NOT NULL,
		last_activity INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_activity ON sessions(last_activity, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new session.
func (s *SQLiteStore) Create(ctx context.Context, session *domain.Session) error {
	row, err := toRow(session)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO sessions (id, topic, content_length, writing_style, feedback_json,
	                      draft, status, continuation_json, created_at, last_activity)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return s.write(ctx, "create session "+session.ID, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			row.id, row.topic, row.length, row.style, row.feedback,
			row.draft, row.status, row.continuation, row.createdAt, row.lastActivity)
		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("create session %s: %w", session.ID, ErrAlreadyExists)
		}
		return err
	})
}

// Get retrieves a session by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, topic, content_length, writing_style, feedback_json,
		       draft, status, continuation_json, created_at, last_activity
		FROM sessions WHERE id = ?`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Update replaces an existing session.
func (s *SQLiteStore) Update(ctx context.Context, session *domain.Session) error {
	row, err := toRow(session)
	if err != nil {
		return err
	}

	query := `
	UPDATE sessions SET
		topic = ?, content_length = ?, writing_style = ?, feedback_json = ?,
		draft = ?, status = ?, continuation_json = ?, last_activity = ?
	WHERE id = ?`

	return s.write(ctx, "update session "+session.ID, func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query,
			row.topic, row.length, row.style, row.feedback,
			row.draft, row.status, row.continuation, row.lastActivity, row.id)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes a session.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.write(ctx, "delete session "+id, func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteInactiveBefore removes sessions idle since before cutoff.
func (s *SQLiteStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
	DELETE FROM sessions
	WHERE COALESCE(NULLIF(last_activity, 0), created_at) < ?
	RETURNING id`

	var removed []string
	err := s.write(ctx, "delete inactive sessions", func(ctx context.Context) error {
		removed = removed[:0]
		rows, err := s.db.QueryContext(ctx, query, cutoff.UnixNano())
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan removed id: %w", err)
			}
			removed = append(removed, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Counts returns total and inactive session counts.
func (s *SQLiteStore) Counts(ctx context.Context, cutoff time.Time) (int, int, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN COALESCE(NULLIF(last_activity, 0), created_at) < ? THEN 1 ELSE 0 END), 0)
		FROM sessions`

	var total, expired int
	if err := s.db.QueryRowContext(ctx, query, cutoff.UnixNano()).Scan(&total, &expired); err != nil {
		return 0, 0, fmt.Errorf("count sessions: %w", err)
	}
	return total, expired, nil
}

func (s *SQLiteStore) write(ctx context.Context, op string, fn func(context.Context) error) error {
	return shared.WithRetry(ctx, shared.SQLiteRetry, op, func(ctx context.Context) error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return fn(ctx)
	})
}

type sessionRow struct {
	id           string
	topic        string
	length       string
	style        string
	feedback     string
	draft        string
	status       string
	continuation sql.NullString
	createdAt    int64
	lastActivity int64
}

func toRow(session *domain.Session) (*sessionRow, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	feedback := session.Feedback
	if feedback == nil {
		feedback = []string{}
	}
	feedbackJSON, err := json.Marshal(feedback)
	if err != nil {
		return nil, fmt.Errorf("marshal feedback: %w", err)
	}

	row := &sessionRow{
		id:        session.ID,
		topic:     session.Topic,
		length:    string(session.Length),
		style:     session.Style,
		feedback:  string(feedbackJSON),
		draft:     session.Draft,
		status:    string(session.Status),
		createdAt: session.CreatedAt.UnixNano(),
	}
	if !session.LastActivity.IsZero() {
		row.lastActivity = session.LastActivity.UnixNano()
	}
	if session.Continuation != nil {
		contJSON, err := json.Marshal(session.Continuation)
		if err != nil {
			return nil, fmt.Errorf("marshal continuation: %w", err)
		}
		row.continuation = sql.NullString{String: string(contJSON), Valid: true}
	}
	return row, nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var r sessionRow
	err := row.Scan(
		&r.id, &r.topic, &r.length, &r.style, &r.feedback,
		&r.draft, &r.status, &r.continuation, &r.createdAt, &r.lastActivity,
	)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:        r.id,
		Topic:     r.topic,
		Length:    domain.ContentLength(r.length),
		Style:     r.style,
		Draft:     r.draft,
		Status:    domain.Status(r.status),
		CreatedAt: time.Unix(0, r.createdAt),
	}
	if r.lastActivity != 0 {
		session.LastActivity = time.Unix(0, r.lastActivity)
	}
	if err := json.Unmarshal([]byte(r.feedback), &session.Feedback); err != nil {
		return nil, fmt.Errorf("unmarshal feedback: %w", err)
	}
	if r.continuation.Valid {
		var cont domain.Continuation
		if err := json.Unmarshal([]byte(r.continuation.String), &cont); err != nil {
			return nil, fmt.Errorf("unmarshal continuation: %w", err)
		}
		session.Continuation = &cont
	}
	return session, nil
}
