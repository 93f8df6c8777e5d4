package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 5 * time.Minute
)

// LabelSource is anything that resolves labels in batches.
type LabelSource interface {
	ResolveLabels(ctx context.Context, userIDs []string) (map[string]string, error)
}

type cacheEntry struct {
	label   string // empty when the source had no label
	expires time.Time
}

// Cache remembers labels from an upstream source for ttl, least recently used
// entries first out. Failed lookups are not cached.
type Cache struct {
	source  LabelSource
	ttl     time.Duration
	now     func() time.Time
	entries *expirable.LRU[string, cacheEntry]
}

// NewCache wraps source. Non-positive ttl or capacity use defaults.
func NewCache(source LabelSource, ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if capacity <= 0 {
		capacity = defaultCacheSize
	}
	return &Cache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: expirable.NewLRU[string, cacheEntry](capacity, nil, ttl),
	}
}

// ResolveLabels serves cached ids and asks the source for the rest in one call.
func (c *Cache) ResolveLabels(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	missing := c.lookup(userIDs, out)
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.source.ResolveLabels(ctx, missing)
	if err != nil {
		return nil, err
	}
	expires := c.now().Add(c.ttl)
	for _, id := range missing {
		label := fetched[id]
		c.entries.Add(id, cacheEntry{label: label, expires: expires})
		if label != "" {
			out[id] = label
		}
	}
	return out, nil
}

// Invalidate forgets id, e.g. after the user renamed themselves.
func (c *Cache) Invalidate(id string) {
	c.entries.Remove(id)
}

func (c *Cache) lookup(ids []string, out map[string]string) []string {
	now := c.now()
	missing := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		entry, ok := c.entries.Get(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		if now.After(entry.expires) {
			c.entries.Remove(id)
			missing = append(missing, id)
			continue
		}
		if entry.label != "" {
			out[id] = entry.label
		}
	}
	return missing
}
