package services

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytloop/internal/shared"
)

// DurationCache stores durations by video id, and remembers the ids the upstream had no
// duration for.
type DurationCache interface {
	Durations(ids []string) (found map[string]time.Duration, unavailable []string, err error)
	SaveDurations(durations map[string]time.Duration, unavailable []string) error
}

// CachedSource wraps a [Source] so that duration lookups are answered from a cache first.
// Only ids missing from the cache reach the upstream, and what it returns is saved.
//
// Cache failures are logged and fall through to the upstream.
type CachedSource struct {
	Source
	cache  DurationCache
	logger *log.Logger
}

// NewCachedSource wraps src. A src that is already cached is returned as is.
func NewCachedSource(src Source, cache DurationCache, logger *log.Logger) *CachedSource {
	if c, ok := src.(*CachedSource); ok {
		return c
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CachedSource{Source: src, cache: cache, logger: logger}
}

// Durations implements [Source]. Ids cached as unavailable stay absent from the result
// without reaching the upstream.
func (c *CachedSource) Durations(ctx context.Context, ids []string) (map[string]time.Duration, error) {
	cached, unavailable, err := c.cache.Durations(ids)
	if err != nil {
		c.logger.Warn("duration cache read failed", "error", err)
		cached, unavailable = nil, nil
	}
	if cached == nil {
		cached = map[string]time.Duration{}
	}

	known := make(map[string]bool, len(cached)+len(unavailable))
	for id := range cached {
		known[id] = true
	}
	for _, id := range unavailable {
		known[id] = true
	}

	var missing []string
	for _, id := range ids {
		if !known[id] {
			known[id] = true
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return cached, nil
	}

	fetched, err := c.Source.Durations(ctx, missing)
	if err != nil {
		return nil, err
	}

	var gone []string
	for _, id := range missing {
		if _, ok := fetched[id]; !ok {
			gone = append(gone, id)
		}
	}
	if err := c.cache.SaveDurations(fetched, gone); err != nil {
		c.logger.Warn("duration cache write failed", "error", err)
	}

	c.logger.Debug("durations resolved", "cached", len(cached), "fetched", len(fetched), "unavailable", len(gone))
	for id, d := range fetched {
		cached[id] = d
	}
	return cached, nil
}
