package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

const kvSchema = `
-- Key/value pairs using the same keys the mobile client stored.
CREATE TABLE IF NOT EXISTS session_kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const (
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyUserData     = "userData"
)

// SQLiteStore persists the session in a small SQLite key/value table.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (creating if needed) the session database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	db, err := sql.Open("sqlite", resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}
	if _, err := db.Exec(kvSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{conn: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Load reads the stored keys; absent keys read as empty.
func (s *SQLiteStore) Load(ctx context.Context) (Session, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT key, value FROM session_kv`)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Session{}, fmt.Errorf("failed to scan session row: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	return decodeRecord(values[keyAccessToken], values[keyRefreshToken], values[keyUserData])
}

// Save replaces all stored keys in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	userData, err := encodeUser(sess.User)
	if err != nil {
		return err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pairs := [][2]string{
		{keyAccessToken, sess.AccessToken},
		{keyRefreshToken, sess.RefreshToken},
		{keyUserData, userData},
	}
	for _, p := range pairs {
		if p[1] == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, p[0]); err != nil {
				return fmt.Errorf("failed to remove %s: %w", p[0], err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, p[0], p[1]); err != nil {
			return fmt.Errorf("failed to store %s: %w", p[0], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Clear deletes every stored key.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM session_kv`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
