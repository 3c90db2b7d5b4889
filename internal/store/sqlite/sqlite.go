package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yousefmohseen/chatroom/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL,
	body          TEXT NOT NULL,
	is_system     BOOLEAN NOT NULL DEFAULT 0,
	notice_user   TEXT NOT NULL DEFAULT '',
	notice_action TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_username ON messages(username);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection: SQLite serialises writers anyway, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, username, body, is_system, notice_user, notice_action, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.Username,
		msg.Body,
		msg.System,
		msg.NoticeUser,
		msg.NoticeAction,
		msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns up to limit of the most recent messages, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, username, body, is_system, notice_user, notice_action, created_at
		FROM (
			SELECT seq, id, username, body, is_system, notice_user, notice_action, created_at
			FROM messages
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.Username,
			&msg.Body,
			&msg.System,
			&msg.NoticeUser,
			&msg.NoticeAction,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// DeleteMessagesByUser removes every non-system message written by username.
func (s *SQLiteStore) DeleteMessagesByUser(ctx context.Context, username string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE username = ? AND is_system = 0`, username)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
