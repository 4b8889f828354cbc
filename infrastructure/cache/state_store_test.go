package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStateStoreSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	assert.NoError(t, store.Put(ctx, "oauth_state:abc", `{"platform":"facebook"}`, 600))

	val, err := store.Consume(ctx, "oauth_state:abc")
	assert.NoError(t, err)
	assert.Equal(t, `{"platform":"facebook"}`, val)

	_, err = store.Consume(ctx, "oauth_state:abc")
	assert.ErrorIs(t, err, ErrStateNotFound, "second consume of the same key must fail")
}

func TestMemoryStateStoreMissingKey(t *testing.T) {
	store := NewMemoryStateStore()
	_, err := store.Consume(context.Background(), "oauth_state:never-stored")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	// Zero TTL expires immediately.
	assert.NoError(t, store.Put(ctx, "k", "v", 0))
	_, err := store.Consume(ctx, "k")
	assert.ErrorIs(t, err, ErrStateNotFound)
}
