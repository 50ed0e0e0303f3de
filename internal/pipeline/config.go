// SPDX-License-Identifier: MIT

package pipeline

import "time"

// Stage timeout defaults.
const (
	DefaultProbeTimeout      = 5 * time.Second
	DefaultProxyTimeout      = 120 * time.Second
	DefaultTranscribeTimeout = 10 * time.Minute
	DefaultRelevanceTimeout  = 60 * time.Second
	DefaultExtractTimeout    = 120 * time.Second
	DefaultGenerateTimeout   = 180 * time.Second
)

// Pipeline-wide defaults.
const (
	DefaultMaxDurationSec = 900
	DefaultChunkSec       = 30
	DefaultCacheTTL       = 24 * time.Hour
)

// Timeouts bounds each stage. Zero fields take the defaults; a negative
// field disables the bound for that stage.
type Timeouts struct {
	Probe      time.Duration
	Proxy      time.Duration
	Transcribe time.Duration
	Relevance  time.Duration
	Extract    time.Duration
	Generate   time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	def := func(v *time.Duration, d time.Duration) {
		if *v == 0 {
			*v = d
		} else if *v < 0 {
			*v = 0
		}
	}
	def(&t.Probe, DefaultProbeTimeout)
	def(&t.Proxy, DefaultProxyTimeout)
	def(&t.Transcribe, DefaultTranscribeTimeout)
	def(&t.Relevance, DefaultRelevanceTimeout)
	def(&t.Extract, DefaultExtractTimeout)
	def(&t.Generate, DefaultGenerateTimeout)
	return t
}

// Config tunes the runner. Zero values take documented defaults.
type Config struct {
	// MaxDurationSec rejects longer sources with InputTooLarge. Exactly
	// equal is accepted.
	MaxDurationSec float64

	// FrameDensity is the target frames per moment-second before the
	// max-keyframes budget applies.
	FrameDensity float64

	// ChunkSec is the segmented variant's chunk length.
	ChunkSec float64

	// CacheTTL bounds analysis cache entries.
	CacheTTL time.Duration

	Timeouts Timeouts
}

func (c Config) withDefaults() Config {
	if c.MaxDurationSec <= 0 {
		c.MaxDurationSec = DefaultMaxDurationSec
	}
	if c.ChunkSec <= 0 {
		c.ChunkSec = DefaultChunkSec
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	c.Timeouts = c.Timeouts.withDefaults()
	return c
}
