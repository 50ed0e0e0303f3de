// SPDX-License-Identifier: MIT

package manager

import (
	"context"
	"errors"
	"os"

	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/session/model"
	"github.com/reeldoc/reeldoc/internal/session/store"
)

// Restore reconciles store and disk at startup. Session mirrors that the
// store does not know about are adopted back (the memory backend loses
// everything on restart; sqlite and badger only the last crash window),
// then every session still marked running is failed as orphaned, since no
// pipeline from a previous process can still be driving it. Call it once
// before accepting new work or starting the sweeper.
func (m *Manager) Restore(ctx context.Context) (restored, reaped int, err error) {
	entries, err := os.ReadDir(m.artifacts.Base())
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if !entry.IsDir() || !model.IsSafeID(entry.Name()) {
			continue
		}
		id := entry.Name()
		if _, err := m.store.Get(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return restored, 0, err
		}
		if err := m.rehydrate(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Directory without a mirror, likely a crash before the
				// first write. Leave it for manual inspection.
				m.logger.Debug().Str(log.FieldSessionID, id).Msg("restore: session dir has no record")
				continue
			}
			m.logger.Warn().Err(err).Str(log.FieldSessionID, id).Msg("restore: unreadable session mirror")
			continue
		}
		restored++
	}

	var orphans []string
	if err := m.store.Scan(ctx, func(rec *model.Session) error {
		if rec.Status == model.StatusRunning {
			orphans = append(orphans, rec.ID)
		}
		return nil
	}); err != nil {
		return restored, 0, err
	}
	for _, id := range orphans {
		if err := m.Fail(ctx, id, fault.StaleTimeout, "orphaned by previous process"); err != nil {
			m.logger.Warn().Err(err).Str(log.FieldSessionID, id).Msg("restore: failed to reap orphan")
			continue
		}
		reaped++
		m.logger.Warn().Str(log.FieldSessionID, id).Msg("restore: reaped orphaned session")
	}
	if restored > 0 || reaped > 0 {
		m.logger.Info().Int("restored", restored).Int("reaped", reaped).Msg("session state restored")
	}
	return restored, reaped, nil
}
