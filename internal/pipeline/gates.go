// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Admission defaults per capability.
const (
	DefaultTranscoderSlots = 2
	DefaultSTTSlots        = 2
	DefaultRelevanceSlots  = 4
	DefaultGeneratorSlots  = 2
)

// GateLimits caps concurrent adapter calls per capability and concurrent
// sessions overall. Zero fields take the defaults; Sessions defaults to
// the CPU count.
type GateLimits struct {
	Sessions   int
	Transcoder int
	STT        int
	Relevance  int
	Generator  int
}

// Gates holds the process-wide admission semaphores. Share one Gates value
// across every Runner so the caps hold globally.
type Gates struct {
	sessions   *semaphore.Weighted
	transcoder *semaphore.Weighted
	stt        *semaphore.Weighted
	relevance  *semaphore.Weighted
	generator  *semaphore.Weighted
}

// NewGates builds the semaphore set.
func NewGates(limits GateLimits) *Gates {
	slot := func(n, def int) *semaphore.Weighted {
		if n <= 0 {
			n = def
		}
		return semaphore.NewWeighted(int64(n))
	}
	return &Gates{
		sessions:   slot(limits.Sessions, runtime.NumCPU()),
		transcoder: slot(limits.Transcoder, DefaultTranscoderSlots),
		stt:        slot(limits.STT, DefaultSTTSlots),
		relevance:  slot(limits.Relevance, DefaultRelevanceSlots),
		generator:  slot(limits.Generator, DefaultGeneratorSlots),
	}
}

// acquire blocks until the capability admits the call or ctx ends. The
// returned release must be called exactly once.
func acquire(ctx context.Context, sem *semaphore.Weighted) (func(), error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
