package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
)

// DefaultMaxEntries caps the persisted collection. The legacy format
// had no bound; the cap is an intentional improvement to keep the file
// from growing forever, not a behavior change.
const DefaultMaxEntries = 500

// CacheRecord is a validated proxy plus the time it entered the cache.
type CacheRecord struct {
	model.ValidatedProxy
	CachedAt time.Time `json:"cached_at"`
}

// FileCache persists validated proxies as a single JSON collection.
// Save overwrites the whole file; Load filters by age. The cache is not
// safe for concurrent use from multiple processes; callers needing that
// must serialize at a higher layer.
type FileCache struct {
	path       string
	maxEntries int
	mu         sync.Mutex
}

// DefaultPath returns the per-user cache file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".proxyfinder", "cache", "proxy_cache.json")
	}
	return filepath.Join(home, ".proxyfinder", "cache", "proxy_cache.json")
}

// NewFileCache creates a cache at path; an empty path uses DefaultPath
// and maxEntries <= 0 uses DefaultMaxEntries.
func NewFileCache(path string, maxEntries int) *FileCache {
	if path == "" {
		path = DefaultPath()
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &FileCache{path: path, maxEntries: maxEntries}
}

// Save overwrites the persisted collection with entries, stamping each
// with the current time. Duplicate addresses keep the first occurrence.
// When the collection exceeds the capacity bound the newest entries
// win.
func (fc *FileCache) Save(entries []model.ValidatedProxy) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	now := time.Now()
	seen := make(map[string]struct{}, len(entries))
	records := make([]CacheRecord, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Address]; dup {
			continue
		}
		seen[e.Address] = struct{}{}
		records = append(records, CacheRecord{ValidatedProxy: e, CachedAt: now})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CachedAt.After(records[j].CachedAt)
	})
	if len(records) > fc.maxEntries {
		records = records[:fc.maxEntries]
	}

	if err := os.MkdirAll(filepath.Dir(fc.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(fc.path, data, 0644); err != nil {
		return err
	}

	l.Info().Int("count", len(records)).Str("path", fc.path).Msg("Saved proxies to cache.")
	return nil
}

// Load returns the cached proxies whose age is within maxAge. A missing
// file yields an empty result; individual malformed records are skipped,
// not fatal.
func (fc *FileCache) Load(maxAge time.Duration) ([]model.ValidatedProxy, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	data, err := os.ReadFile(fc.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.Debug().Str("path", fc.path).Msg("No proxy cache file exists.")
			return nil, nil
		}
		return nil, err
	}

	// Decode record-by-record so one bad entry does not poison the
	// whole collection.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		l.Warn().Err(err).Str("path", fc.path).Msg("Cache file unreadable, treating as empty.")
		return nil, nil
	}

	now := time.Now()
	proxies := make([]model.ValidatedProxy, 0, len(raw))
	skipped := 0
	for _, msg := range raw {
		var rec CacheRecord
		if err := json.Unmarshal(msg, &rec); err != nil || rec.Address == "" || rec.CachedAt.IsZero() {
			skipped++
			continue
		}
		if now.Sub(rec.CachedAt) > maxAge {
			continue
		}
		proxies = append(proxies, rec.ValidatedProxy)
	}

	l.Info().
		Int("loaded", len(proxies)).
		Int("total", len(raw)).
		Int("skipped", skipped).
		Msg("Loaded proxies from cache.")
	return proxies, nil
}
