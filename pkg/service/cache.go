package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// HotCache keeps recently served translations in memory in front of the
// database.
type HotCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewHotCache(maxCost int64, ttl time.Duration) (*HotCache, error) {
	// Roughly ten counters per expected entry, assuming ~100 byte translations.
	counters := maxCost / 10
	if counters < 1000 {
		counters = 1000
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     maxCost, // total byte cost of cached translations.
		BufferItems: 64,      // number of keys per Get buffer.
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &HotCache{cache: cache, ttl: ttl}, nil
}

func (c *HotCache) Get(key string) (string, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return "", false
	}
	return v.(string), true
}

func (c *HotCache) Set(key, translation string) {
	c.cache.SetWithTTL(key, translation, int64(len(translation)), c.ttl)
}

// Wait blocks until buffered writes are applied.
func (c *HotCache) Wait() {
	c.cache.Wait()
}

func (c *HotCache) Close() {
	c.cache.Close()
}

func generateCacheKey(content, source, target string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%q:%q:%q", content, source, target)))
	return hex.EncodeToString(hash[:])
}
