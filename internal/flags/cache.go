// Package flags resolves currency codes to small flag images and keeps the
// most recently used ones decoded in memory.
package flags

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"bullion-bell/internal/errors"
)

// EuroCode resolves from a local file instead of the URL table.
const EuroCode = "EUR"

// Config holds asset cache configuration.
type Config struct {
	Capacity          int
	TablePath         string
	EURIconPath       string
	RequestsPerSecond float64 // 0 = unlimited
	Burst             int
}

// DefaultConfig returns the default asset cache configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:          100,
		EURIconPath:       filepath.Join("resources", "icons", "flags", "EU_icon.png"),
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// Stats reports cache activity counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Failures  uint64
	Evictions uint64
	Len       int
	Capacity  int
}

// Cache is a bounded LRU of decoded flag images keyed by upper-cased code.
// Failed resolutions are not cached, so the next lookup retries.
type Cache struct {
	entries  *lru.Cache[string, image.Image]
	capacity int
	table    map[string]string
	eurIcon  string
	fetcher  Fetcher
	limiter  *rate.Limiter
	logger   zerolog.Logger

	// resolveMu serializes misses so one code is fetched at most once at a time.
	resolveMu sync.Mutex

	hits      atomic.Uint64
	misses    atomic.Uint64
	failures  atomic.Uint64
	evictions atomic.Uint64
}

// New creates a Cache. The code table is loaded once here.
func New(cfg Config, fetcher Fetcher, logger zerolog.Logger) (*Cache, error) {
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("flag cache capacity must be at least 1, got %d", cfg.Capacity)
	}
	table, err := LoadTable(cfg.TablePath)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Cache{
		capacity: cfg.Capacity,
		table:    table,
		eurIcon:  cfg.EURIconPath,
		fetcher:  fetcher,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With().Str("component", "flag_cache").Logger(),
	}

	c.entries, err = lru.NewWithEvict[string, image.Image](cfg.Capacity, func(code string, _ image.Image) {
		c.evictions.Add(1)
		c.logger.Debug().Str("code", code).Msg("Evicted flag")
	})
	if err != nil {
		return nil, fmt.Errorf("creating flag cache: %w", err)
	}
	return c, nil
}

// Get returns the flag for code, or false if it cannot be resolved.
func (c *Cache) Get(code string) (image.Image, bool) {
	return c.GetContext(context.Background(), code)
}

// GetContext is Get with a context bounding the remote fetch.
func (c *Cache) GetContext(ctx context.Context, code string) (image.Image, bool) {
	code = normalize(code)
	if code == "" {
		return nil, false
	}

	if img, ok := c.entries.Get(code); ok {
		c.hits.Add(1)
		return img, true
	}

	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	// Another caller may have resolved it while we waited.
	if img, ok := c.entries.Get(code); ok {
		c.hits.Add(1)
		return img, true
	}
	c.misses.Add(1)

	img, err := c.resolve(ctx, code)
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn().Err(err).Msg("Flag unavailable")
		return nil, false
	}

	c.entries.Add(code, img)
	return img, true
}

func (c *Cache) resolve(ctx context.Context, code string) (image.Image, error) {
	if code == EuroCode {
		data, err := os.ReadFile(c.eurIcon)
		if os.IsNotExist(err) {
			return nil, errors.NewAssetError(code, c.eurIcon, errors.ErrAssetMissing)
		}
		if err != nil {
			return nil, errors.NewAssetError(code, "reading local icon", err)
		}
		img, err := decodeScaled(data)
		if err != nil {
			return nil, errors.NewAssetError(code, "decoding local icon", err)
		}
		return img, nil
	}

	url, ok := c.table[code]
	if !ok || url == "" {
		return nil, errors.NewAssetError(code, "lookup", errors.ErrNoMapping)
	}
	if c.fetcher == nil {
		return nil, errors.NewAssetError(code, "no fetcher configured", nil)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewAssetError(code, "rate limit wait", err)
	}

	data, err := c.fetcher.FetchBytes(ctx, url)
	if err != nil {
		return nil, errors.NewAssetError(code, "fetch", err)
	}

	img, err := decodeScaled(data)
	if err != nil {
		return nil, errors.NewAssetError(code, "decode", err)
	}
	return img, nil
}

// Contains reports whether code is cached without touching its recency.
func (c *Cache) Contains(code string) bool {
	return c.entries.Contains(normalize(code))
}

// Len returns the number of cached flags.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Keys returns cached codes from least to most recently used.
func (c *Cache) Keys() []string {
	return c.entries.Keys()
}

// Purge drops every cached flag.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Codes lists every code the cache can resolve.
func (c *Cache) Codes() []string {
	codes := sortedCodes(c.table)
	if _, ok := c.table[EuroCode]; !ok {
		codes = append(codes, EuroCode)
	}
	return codes
}

// Stats returns activity counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
		Len:       c.entries.Len(),
		Capacity:  c.capacity,
	}
}
