// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

type violations []string

func (v *violations) addf(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v *violations) oneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.addf("%s: %q not in {%s}", field, value, strings.Join(allowed, ", "))
}

// Validate checks the resolved configuration for internal consistency.
func (c Config) Validate() error {
	var v violations

	if c.DataDir == "" {
		v.addf("data_dir: must not be empty")
	}
	if c.PromptsDir == "" {
		v.addf("prompts_dir: must not be empty")
	}

	if c.Limits.MaxDurationSec <= 0 {
		v.addf("limits.max_duration_sec: must be positive, got %d", c.Limits.MaxDurationSec)
	}
	if c.Limits.MinDurationSec < 0 {
		v.addf("limits.min_duration_sec: must not be negative, got %d", c.Limits.MinDurationSec)
	}
	if c.Limits.MinDurationSec >= c.Limits.MaxDurationSec && c.Limits.MaxDurationSec > 0 {
		v.addf("limits: min_duration_sec %d must be below max_duration_sec %d",
			c.Limits.MinDurationSec, c.Limits.MaxDurationSec)
	}

	p := c.Pipeline
	if p.ProxyFPS < 1 {
		v.addf("pipeline.proxy_fps: must be at least 1, got %d", p.ProxyFPS)
	}
	if p.ProxyLongEdgePx < 16 {
		v.addf("pipeline.proxy_long_edge_px: must be at least 16, got %d", p.ProxyLongEdgePx)
	}
	if p.MaxKeyframes < 1 {
		v.addf("pipeline.max_keyframes: must be at least 1, got %d", p.MaxKeyframes)
	}
	if p.MergeGapSec < 0 {
		v.addf("pipeline.merge_gap_sec: must not be negative, got %g", p.MergeGapSec)
	}
	if p.MinSegmentSec <= 0 {
		v.addf("pipeline.min_segment_sec: must be positive, got %g", p.MinSegmentSec)
	}
	if p.ChunkSec <= 0 {
		v.addf("pipeline.segment_pipeline_chunk_sec: must be positive, got %d", p.ChunkSec)
	}
	if p.Concurrency < 0 {
		v.addf("pipeline.session_concurrency: must not be negative, got %d", p.Concurrency)
	}

	st := p.StageTimeouts
	for _, t := range []struct {
		name string
		val  int64
	}{
		{"probe", int64(st.Probe)},
		{"proxy", int64(st.Proxy)},
		{"transcribe", int64(st.Transcribe)},
		{"relevance", int64(st.Relevance)},
		{"extract", int64(st.Extract)},
		{"generate", int64(st.Generate)},
	} {
		if t.val <= 0 {
			v.addf("pipeline.stage_timeouts.%s: must be positive", t.name)
		}
	}

	al := p.AdapterLimits
	for _, t := range []struct {
		name string
		val  int
	}{
		{"transcoder", al.Transcoder},
		{"stt", al.STT},
		{"relevance", al.Relevance},
		{"generator", al.Generator},
	} {
		if t.val < 1 {
			v.addf("pipeline.adapter_limits.%s: must be at least 1, got %d", t.name, t.val)
		}
	}

	v.oneOf("store.backend", c.Store.Backend, "memory", "sqlite", "badger")
	if c.Store.Backend != "memory" && c.Store.Path == "" {
		v.addf("store.path: required for backend %q", c.Store.Backend)
	}

	v.oneOf("cache.backend", c.Cache.Backend, "none", "memory", "redis")
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		v.addf("cache.redis_addr: required for redis backend")
	}
	if c.Cache.Backend != "none" && c.Cache.TTL <= 0 {
		v.addf("cache.ttl: must be positive for backend %q", c.Cache.Backend)
	}

	v.oneOf("stt.preference_default", c.STT.PreferenceDefault, "fast", "accurate", "auto")
	if c.STT.AutoLocalThresholdSec <= 0 {
		v.addf("stt.auto_local_threshold_sec: must be positive, got %d", c.STT.AutoLocalThresholdSec)
	}
	if c.STT.LanguageDefault != "" {
		if _, err := language.Parse(c.STT.LanguageDefault); err != nil {
			v.addf("stt.language_default: invalid BCP-47 tag %q", c.STT.LanguageDefault)
		}
	}

	v.oneOf("llm.provider", c.LLM.Provider,
		"gemini", "openai", "groq", "ollama", "openai-compatible")
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		v.addf("llm.temperature: must be within [0, 2], got %g", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		v.addf("llm.max_tokens: must be positive, got %d", c.LLM.MaxTokens)
	}

	if c.Telemetry.Enabled {
		v.oneOf("telemetry.exporter", c.Telemetry.Exporter, "grpc", "http")
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			v.addf("telemetry.sample_rate: must be within [0, 1], got %g", c.Telemetry.SampleRate)
		}
	}

	if c.Media.FFmpegPath == "" {
		v.addf("media.ffmpeg_path: must not be empty")
	}
	if c.Media.FFprobePath == "" {
		v.addf("media.ffprobe_path: must not be empty")
	}

	s := c.Session
	if s.StaleSessionSec <= 0 {
		v.addf("session.stale_session_sec: must be positive, got %d", s.StaleSessionSec)
	}
	if s.SweepInterval <= 0 {
		v.addf("session.sweep_interval: must be positive")
	}
	if s.RetentionMemory < 0 {
		v.addf("session.retention_memory: must not be negative")
	}
	if s.RetentionDisk < 0 {
		v.addf("session.retention_disk: must not be negative")
	}

	if len(v) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(v, "\n  - "))
	}
	return nil
}
