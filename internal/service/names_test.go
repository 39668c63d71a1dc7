package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gpsr/internal/domain/users"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	names map[uuid.UUID]string
	calls int
	err   error
}

func (c *countingSource) DisplayNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if n, ok := c.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func TestNameCacheHitsAndFallback(t *testing.T) {
	known, gone := uuid.New(), uuid.New()
	src := &countingSource{names: map[uuid.UUID]string{known: "Alice"}}
	cache := NewNameCache(src, 16, time.Minute)

	names, err := cache.Names(context.Background(), []uuid.UUID{known, gone, known})
	require.NoError(t, err)
	assert.Equal(t, "Alice", names[known])
	assert.Equal(t, users.UnknownName, names[gone])
	assert.Equal(t, 1, src.calls)

	// known is cached now; gone is looked up again.
	names, err = cache.Names(context.Background(), []uuid.UUID{known})
	require.NoError(t, err)
	assert.Equal(t, "Alice", names[known])
	assert.Equal(t, 1, src.calls)

	_, err = cache.Name(context.Background(), gone)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestNameCacheErrorStillReturnsLabels(t *testing.T) {
	id := uuid.New()
	cache := NewNameCache(&countingSource{err: errors.New("db down")}, 0, time.Minute)

	name, err := cache.Name(context.Background(), id)
	assert.Error(t, err)
	assert.Equal(t, users.UnknownName, name)
}

func TestNameCacheEmptyInput(t *testing.T) {
	src := &countingSource{}
	names, err := NewNameCache(src, 4, time.Minute).Names(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Zero(t, src.calls)
}
