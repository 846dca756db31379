package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-job-acquisition/internal/logger"
)

type seenEntry struct {
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
}

// HashCache remembers content hashes written by previous runs, expiring after a TTL.
type HashCache struct {
	mu       sync.Mutex
	filePath string
	ttl      time.Duration
	seen     map[string]int64
	// prior holds the hashes loaded from disk, i.e. written by earlier runs.
	prior map[string]struct{}
	now   func() time.Time
}

// NewHashCache creates or loads the cache file seen_hashes.json under cacheDir.
func NewHashCache(cacheDir string, ttl time.Duration) *HashCache {
	log := logger.For("dedup")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to create cache directory")
	}
	cache := &HashCache{
		filePath: filepath.Join(cacheDir, "seen_hashes.json"),
		ttl:      ttl,
		seen:     make(map[string]int64),
		prior:    make(map[string]struct{}),
		now:      time.Now,
	}
	cache.load()
	return cache
}

func (c *HashCache) IsSeen(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.seen[hash]
	return exists
}

// SeenInEarlierRun ignores hashes added since the cache was loaded.
func (c *HashCache) SeenInEarlierRun(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.prior[hash]
	return exists
}

// Add records hashes and saves the file when anything changed.
func (c *HashCache) Add(hashes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixMilli()
	changed := false
	for _, h := range hashes {
		if _, exists := c.seen[h]; !exists {
			c.seen[h] = now
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return c.save()
}

func (c *HashCache) load() {
	log := logger.For("dedup")
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("⚠️ Failed to read seen_hashes.json")
		}
		return
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to parse seen_hashes.json")
		return
	}

	cutoff := c.now().Add(-c.ttl).UnixMilli()
	loaded := 0
	for _, e := range entries {
		if e.Timestamp > cutoff {
			c.seen[e.Hash] = e.Timestamp
			c.prior[e.Hash] = struct{}{}
			loaded++
		}
	}
	log.Info().Int("loaded", loaded).Int("expired", len(entries)-loaded).Msg("📋 Loaded previously written listings")
}

func (c *HashCache) save() error {
	entries := make([]seenEntry, 0, len(c.seen))
	for h, ts := range c.seen {
		entries = append(entries, seenEntry{Hash: h, Timestamp: ts})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.filePath, data, 0644)
}
