package cleaning

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"osm-ingest/rules"
)

// CachedStreet memoizes another StreetNormalizer in an LRU cache.
type CachedStreet struct {
	next  StreetNormalizer
	cache *lru.Cache[string, string]
}

func NewCachedStreet(next StreetNormalizer, size int) (*CachedStreet, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create street cache: %w", err)
	}
	return &CachedStreet{next: next, cache: cache}, nil
}

func (c *CachedStreet) Normalize(name string) string {
	if out, ok := c.cache.Get(name); ok {
		return out
	}
	out := c.next.Normalize(name)
	c.cache.Add(name, out)
	return out
}

// Len is the number of cached names.
func (c *CachedStreet) Len() int {
	return c.cache.Len()
}

// NewStreetNormalizer compiles r and wraps it in a cache of cacheSize names.
// A zero cacheSize disables caching.
func NewStreetNormalizer(r rules.Rules, cacheSize int) (StreetNormalizer, error) {
	street := NewStreet(r)
	if cacheSize == 0 {
		return street, nil
	}
	return NewCachedStreet(street, cacheSize)
}
