// SPDX-License-Identifier: MIT

package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/reeldoc/reeldoc/internal/audit"
	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/metrics"
	"github.com/reeldoc/reeldoc/internal/session/model"
)

// Sweeper defaults. A session counts as a zombie when it has been running
// with no progress for StaleAfter; the cache keeps inactive sessions for
// CacheRetention before evicting them.
const (
	DefaultSweepInterval  = time.Minute
	DefaultStaleAfter     = 10 * time.Minute
	DefaultCacheRetention = time.Hour
)

// SweeperConfig tunes the periodic session sweep. Zero values take the
// package defaults.
type SweeperConfig struct {
	Interval       time.Duration
	StaleAfter     time.Duration
	CacheRetention time.Duration
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultSweepInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.CacheRetention <= 0 {
		c.CacheRetention = DefaultCacheRetention
	}
	return c
}

// Sweeper periodically reaps zombie sessions and trims the manager's read
// cache. Run it in its own goroutine; it exits when the context ends.
// Audit is optional; when set, every reap pass that failed sessions leaves
// an audit record.
type Sweeper struct {
	Manager *Manager
	Conf    SweeperConfig
	Audit   *audit.Logger
}

// Run executes SweepOnce every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	conf := s.Conf.withDefaults()
	ticker := time.NewTicker(conf.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single sweep: running sessions that have not
// advanced within StaleAfter are failed as stale, and cache entries idle
// past CacheRetention are evicted. Exposed for deterministic tests.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	conf := s.Conf.withDefaults()
	s.reapStale(ctx, conf.StaleAfter)

	evicted := s.Manager.evictStale(conf.CacheRetention)
	for i := 0; i < evicted; i++ {
		metrics.IncSweeperReaped("retention")
	}
	if evicted > 0 {
		s.Manager.logger.Debug().Int("evicted", evicted).Msg("sweep: evicted idle sessions from cache")
	}
}

func (s *Sweeper) reapStale(ctx context.Context, staleAfter time.Duration) {
	cutoff := time.Now().UTC().Add(-staleAfter)

	// Collect first, then act: Fail mutates the store and must not run
	// inside the store's own scan.
	type zombie struct {
		id      string
		updated time.Time
	}
	var zombies []zombie
	err := s.Manager.store.Scan(ctx, func(rec *model.Session) error {
		if rec.Status == model.StatusRunning && rec.LastUpdated.Before(cutoff) {
			zombies = append(zombies, zombie{id: rec.ID, updated: rec.LastUpdated})
		}
		return nil
	})
	if err != nil {
		s.Manager.logger.Warn().Err(err).Msg("sweep: session scan failed")
		return
	}

	var reaped []string
	for _, z := range zombies {
		msg := fmt.Sprintf("no progress since %s", z.updated.Format(time.RFC3339))
		if err := s.Manager.Fail(ctx, z.id, fault.StaleTimeout, msg); err != nil {
			// Lost the race against a real transition; nothing to reap.
			s.Manager.logger.Debug().Err(err).Str(log.FieldSessionID, z.id).Msg("sweep: stale session changed state")
			continue
		}
		metrics.IncSweeperReaped("stale")
		reaped = append(reaped, z.id)
		s.Manager.logger.Warn().Str(log.FieldSessionID, z.id).Time("last_updated", z.updated).Msg("sweep: reaped stale session")
	}
	if len(reaped) > 0 && s.Audit != nil {
		s.Audit.SweeperReaped(reaped, "stale")
	}
}
