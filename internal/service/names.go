package service

import (
	"context"
	"time"

	"gpsr/internal/domain/users"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// NameSource resolves display names in bulk. users.Store satisfies it.
type NameSource interface {
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// NameCache fronts NameSource with a size and TTL bounded LRU. Only names
// that resolved are cached, so a user created after a miss shows up at once.
type NameCache struct {
	src   NameSource
	cache *expirable.LRU[uuid.UUID, string]
}

func NewNameCache(src NameSource, size int, ttl time.Duration) *NameCache {
	if size <= 0 {
		size = 1024
	}
	return &NameCache{
		src:   src,
		cache: expirable.NewLRU[uuid.UUID, string](size, nil, ttl),
	}
}

// Names returns a name for every id. Unknown ids map to users.UnknownName.
// On a lookup error the result is still complete, with the uncached ids
// falling back to the sentinel, and the error is returned for logging.
func (c *NameCache) Names(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	var missing []uuid.UUID
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		if name, ok := c.cache.Get(id); ok {
			nameCacheHits.Inc()
			out[id] = name
			continue
		}
		out[id] = users.UnknownName
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	nameCacheMisses.Add(float64(len(missing)))
	found, err := c.src.DisplayNames(ctx, missing)
	if err != nil {
		return out, err
	}
	for id, name := range found {
		c.cache.Add(id, name)
		out[id] = name
	}
	return out, nil
}

func (c *NameCache) Name(ctx context.Context, id uuid.UUID) (string, error) {
	names, err := c.Names(ctx, []uuid.UUID{id})
	return names[id], err
}
