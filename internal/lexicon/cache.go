// Package lexicon caches reading → candidate word lookups.
package lexicon

import (
	"context"
	"encoding/binary"
	"sync/atomic"

	"github.com/VictoriaMetrics/fastcache"
)

// DefaultMaxBytes is the cache size used when none is configured.
const DefaultMaxBytes = 32 << 20

// Source resolves reading ids to candidate word ids in one batched call.
type Source interface {
	CandidatesForReadings(ctx context.Context, readingIDs []int64) (map[int64][]int64, error)
}

// Cache sits in front of a Source. Candidate sets only change when the
// dictionary is reloaded, so entries never expire; call Reset after a load.
type Cache struct {
	src    Source
	c      *fastcache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
	// gen is bumped by Reset; fetches that straddle a Reset are not cached.
	gen atomic.Uint64
}

// NewCache wraps src with a cache of at most maxBytes.
func NewCache(src Source, maxBytes int) *Cache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Cache{src: src, c: fastcache.New(maxBytes)}
}

// CandidatesForReadings serves cached readings and fetches the rest from
// the source in a single call.
func (c *Cache) CandidatesForReadings(ctx context.Context, readingIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(readingIDs))
	var missing []int64
	seen := make(map[int64]bool, len(readingIDs))

	for _, r := range readingIDs {
		if seen[r] {
			continue
		}
		seen[r] = true
		if v, ok := c.c.HasGet(nil, readingKey(r)); ok {
			out[r] = decodeIDs(v)
			c.hits.Add(1)
			continue
		}
		missing = append(missing, r)
	}
	if len(missing) == 0 {
		return out, nil
	}

	c.misses.Add(uint64(len(missing)))
	gen := c.gen.Load()
	fetched, err := c.src.CandidatesForReadings(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, r := range missing {
		ids := fetched[r]
		out[r] = ids
		if c.gen.Load() == gen {
			c.c.Set(readingKey(r), encodeIDs(ids))
		}
	}
	return out, nil
}

// Reset drops every cached entry.
func (c *Cache) Reset() {
	c.gen.Add(1)
	c.c.Reset()
}

// Stats reports lookup hits and misses since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func readingKey(r int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(r))
	return k
}

func encodeIDs(ids []int64) []byte {
	b := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint64(b[8*i:], uint64(id))
	}
	return b
}

func decodeIDs(b []byte) []int64 {
	if len(b) == 0 {
		return nil
	}
	ids := make([]int64, len(b)/8)
	for i := range ids {
		ids[i] = int64(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return ids
}
