// Package sqlite provides a SQLite-backed session store for durable
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	sessionstore "geoaval/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	stage      TEXT NOT NULL,
	state      TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// SQLiteSessionStore persists sessions in a SQLite database. It is safe
// for concurrent use; optimistic version checks are enforced inside a
// single transaction.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore opens (or creates) the database at path and
// ensures the sessions table exists. Use ":memory:" for an ephemeral
// store in tests.
func NewSQLiteSessionStore(path string) (*SQLiteSessionStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLiteSessionStore{db: db}, nil
}

// Save persists the session if the version check passes. A session with
// Version 1 must not exist yet; otherwise the stored version must be
// exactly Version-1.
func (s *SQLiteSessionStore) Save(ctx context.Context, sess *sessionstore.Session) error {
	if len(sess.State) == 0 {
		return errors.New("session state must not be empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, "SELECT version FROM sessions WHERE id = ?", sess.ID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if sess.Version != 1 {
			return sessionstore.ErrVersionConflict
		}
	case err != nil:
		return fmt.Errorf("query session version: %w", err)
	default:
		if current != sess.Version-1 {
			return sessionstore.ErrVersionConflict
		}
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, stage, state, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stage = excluded.stage,
			state = excluded.state,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		sess.ID, sess.Stage, string(sess.State), sess.Version, now)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	sess.UpdatedAt = now
	return nil
}

// Load retrieves the session with the given id.
func (s *SQLiteSessionStore) Load(ctx context.Context, id string) (*sessionstore.Session, error) {
	var (
		sess  sessionstore.Session
		state string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, stage, state, version, updated_at FROM sessions WHERE id = ?", id).
		Scan(&sess.ID, &sess.Stage, &state, &sess.Version, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sessionstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	sess.State = json.RawMessage(state)
	return &sess, nil
}

// Delete removes the session with the given id.
func (s *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sessionstore.ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}
