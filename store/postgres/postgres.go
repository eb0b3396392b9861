// Package postgres provides a PostgreSQL-backed session store for
// multi-node deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	sessionstore "geoaval/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresSessionStore implements store.SessionStore using PostgreSQL
type PostgresSessionStore struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "sessions"
}

// NewPostgresSessionStore creates a new Postgres session store
func NewPostgresSessionStore(ctx context.Context, opts PostgresOptions) (*PostgresSessionStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "sessions"
	}

	return &PostgresSessionStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// NewPostgresSessionStoreWithPool creates a new Postgres session store with an existing pool
// Useful for testing with mocks
func NewPostgresSessionStoreWithPool(pool DBPool, tableName string) *PostgresSessionStore {
	if tableName == "" {
		tableName = "sessions"
	}
	return &PostgresSessionStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresSessionStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			state JSONB NOT NULL,
			version INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresSessionStore) Close() {
	s.pool.Close()
}

// Save stores a session, enforcing the optimistic version check. A
// session with Version 1 must be new; any later version must follow
// exactly the stored version. Both checks are a single statement so
// concurrent saves against the same id cannot interleave.
func (s *PostgresSessionStore) Save(ctx context.Context, sess *sessionstore.Session) error {
	if len(sess.State) == 0 {
		return errors.New("session state must not be empty")
	}

	now := time.Now().UTC()

	if sess.Version == 1 {
		query := fmt.Sprintf(`
			INSERT INTO %s (id, stage, state, version, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, s.tableName)

		tag, err := s.pool.Exec(ctx, query, sess.ID, sess.Stage, []byte(sess.State), sess.Version, now)
		if err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return sessionstore.ErrVersionConflict
		}
		sess.UpdatedAt = now
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET stage = $2, state = $3, version = $4, updated_at = $5
		WHERE id = $1 AND version = $4 - 1
	`, s.tableName)

	tag, err := s.pool.Exec(ctx, query, sess.ID, sess.Stage, []byte(sess.State), sess.Version, now)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sessionstore.ErrVersionConflict
	}
	sess.UpdatedAt = now
	return nil
}

// Load retrieves a session by id
func (s *PostgresSessionStore) Load(ctx context.Context, id string) (*sessionstore.Session, error) {
	query := fmt.Sprintf(`
		SELECT id, stage, state, version, updated_at
		FROM %s
		WHERE id = $1
	`, s.tableName)

	var sess sessionstore.Session
	var stateJSON []byte

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sess.ID,
		&sess.Stage,
		&stateJSON,
		&sess.Version,
		&sess.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sessionstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess.State = stateJSON
	return &sess, nil
}

// Delete removes a session
func (s *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sessionstore.ErrNotFound
	}
	return nil
}
