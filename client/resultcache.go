package client

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

type cacheEntry struct {
	result    SendGPSResult
	expiresAt time.Time
}

// resultCache memoizes SendGPS results by an md5 digest of
// host:port:message, so identical sends within the TTL window skip the
// round trip entirely.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func cacheKey(host string, port int, message string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%s", host, port, message)))
	return hex.EncodeToString(sum[:])
}

func (c *resultCache) get(key string) (SendGPSResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return SendGPSResult{}, false
	}
	return e.result, true
}

func (c *resultCache) put(key string, result SendGPSResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expiresAt: time.Now().Add(c.ttl)}
}
