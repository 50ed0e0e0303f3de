// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/reeldoc/reeldoc/internal/session/manager"
)

// Progress values published at stage boundaries. 100 is reserved for
// Complete.
const (
	progressProbe      = 5
	progressProxy      = 15
	progressTranscribe = 35
	progressSelect     = 50
	progressExtract    = 70
	progressGenerate   = 95
)

// progressReporter publishes monotone progress through the session
// manager. Boundary updates always go through; within-stage updates are
// throttled to one per 500ms so chatty stages cannot flood the store.
type progressReporter struct {
	mgr       *manager.Manager
	sessionID string

	mu      sync.Mutex
	limiter *rate.Limiter
	last    int
}

func newProgressReporter(mgr *manager.Manager, sessionID string) *progressReporter {
	return &progressReporter{
		mgr:       mgr,
		sessionID: sessionID,
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// boundary publishes a stage-boundary update, bypassing the throttle.
// Publish failures are swallowed: cancellation surfaces at checkpoints,
// not here.
func (p *progressReporter) boundary(ctx context.Context, label string, pct int) {
	p.publish(ctx, label, pct, true)
}

// within publishes an in-stage update subject to the throttle.
func (p *progressReporter) within(ctx context.Context, label string, pct int) {
	p.publish(ctx, label, pct, false)
}

func (p *progressReporter) publish(ctx context.Context, label string, pct int, force bool) {
	p.mu.Lock()
	if pct < p.last {
		p.mu.Unlock()
		return
	}
	if !force && !p.limiter.Allow() {
		p.mu.Unlock()
		return
	}
	p.last = pct
	p.mu.Unlock()

	_ = p.mgr.UpdateProgress(ctx, p.sessionID, label, pct)
}
