// Package store defines the persistence contract for pipeline sessions.
// A session record is the serialized pipeline state for one session id,
// saved after every completed stage so an unrelated later invocation,
// possibly from another process, can resume it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session exists for the given id.
	ErrNotFound = errors.New("session not found")

	// ErrVersionConflict is returned by Save when the stored version does
	// not precede the one being written. Callers retry by reloading.
	ErrVersionConflict = errors.New("session version conflict")
)

// Session is one persisted session record.
type Session struct {
	// ID is the opaque session identifier.
	ID string `json:"id"`

	// Stage is the pipeline position the session is currently at.
	Stage string `json:"stage"`

	// State is the serialized pipeline state.
	State json.RawMessage `json:"state"`

	// Version increments by one on every save. Stores reject writes whose
	// version does not directly follow the stored one, which serializes
	// concurrent writers on the same id.
	Version int `json:"version"`

	// UpdatedAt is the time of the last save.
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore persists session records keyed by session id.
//
// Save is an optimistic write: it succeeds when no record exists and
// s.Version == 1, or when the stored record's version equals s.Version-1;
// otherwise it fails with ErrVersionConflict. Load returns ErrNotFound for
// unknown ids. Records are never deleted by the pipeline itself; eviction
// (e.g. a TTL on the redis backend) is a deployment policy.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
