package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	sessionstore "geoaval/store"
)

func TestRedisSessionStore(t *testing.T) {
	// Start miniredis
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	store := NewRedisSessionStore(RedisOptions{
		Addr: mr.Addr(),
	})
	defer store.Close()

	ctx := context.Background()

	sess := &sessionstore.Session{
		ID:      "sess-1",
		Stage:   "GATHERING",
		State:   json.RawMessage(`{"target":"Acme","location":"Springfield"}`),
		Version: 1,
	}

	// Test Save
	err = store.Save(ctx, sess)
	assert.NoError(t, err)

	// Test Load
	loaded, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, sess.Stage, loaded.Stage)
	assert.JSONEq(t, string(sess.State), string(loaded.State))
	assert.False(t, loaded.UpdatedAt.IsZero())

	// Unknown id
	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)

	// Version checks
	err = store.Save(ctx, &sessionstore.Session{ID: "sess-1", Version: 1, State: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, sessionstore.ErrVersionConflict)

	err = store.Save(ctx, &sessionstore.Session{ID: "sess-1", Version: 3, State: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, sessionstore.ErrVersionConflict)

	err = store.Save(ctx, &sessionstore.Session{ID: "sess-1", Stage: "DONE", Version: 2, State: json.RawMessage(`{}`)})
	assert.NoError(t, err)

	loaded, err = store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
	assert.Equal(t, "DONE", loaded.Stage)

	// Test Delete
	err = store.Delete(ctx, "sess-1")
	assert.NoError(t, err)

	err = store.Delete(ctx, "sess-1")
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func TestRedisSessionStoreTTL(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	store := NewRedisSessionStore(RedisOptions{
		Addr: mr.Addr(),
		TTL:  time.Minute,
	})
	defer store.Close()

	ctx := context.Background()
	err = store.Save(ctx, &sessionstore.Session{ID: "sess-ttl", Version: 1, State: json.RawMessage(`{}`)})
	assert.NoError(t, err)

	// Advance past the TTL; the session is evicted.
	mr.FastForward(2 * time.Minute)

	_, err = store.Load(ctx, "sess-ttl")
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func TestRedisSessionStoreFreshVersionMustBeOne(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	store := NewRedisSessionStore(RedisOptions{Addr: mr.Addr()})
	defer store.Close()

	err = store.Save(context.Background(), &sessionstore.Session{ID: "fresh", Version: 2, State: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, sessionstore.ErrVersionConflict)
}
