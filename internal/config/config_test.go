// SPDX-License-Identifier: MIT
package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() must validate, got: %v", err)
	}
}

func TestDefault_CoreValues(t *testing.T) {
	cfg := Default()

	if cfg.Limits.MaxDurationSec != 900 {
		t.Errorf("expected max_duration_sec=900, got %d", cfg.Limits.MaxDurationSec)
	}
	if cfg.Pipeline.ProxyFPS != 1 {
		t.Errorf("expected proxy_fps=1, got %d", cfg.Pipeline.ProxyFPS)
	}
	if cfg.Pipeline.ProxyLongEdgePx != 640 {
		t.Errorf("expected proxy_long_edge_px=640, got %d", cfg.Pipeline.ProxyLongEdgePx)
	}
	if cfg.Pipeline.MaxKeyframes != 25 {
		t.Errorf("expected max_keyframes=25, got %d", cfg.Pipeline.MaxKeyframes)
	}
	if cfg.Pipeline.StageTimeouts.Transcribe != 10*time.Minute {
		t.Errorf("expected transcribe timeout 10m, got %v", cfg.Pipeline.StageTimeouts.Transcribe)
	}
	if cfg.Pipeline.AdapterLimits.Relevance != 4 {
		t.Errorf("expected relevance adapter limit 4, got %d", cfg.Pipeline.AdapterLimits.Relevance)
	}
	if cfg.Session.StaleSessionSec != 600 {
		t.Errorf("expected stale_session_sec=600, got %d", cfg.Session.StaleSessionSec)
	}
	if cfg.STT.PreferenceDefault != "auto" {
		t.Errorf("expected stt preference auto, got %s", cfg.STT.PreferenceDefault)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "zero max duration",
			mutate:  func(c *Config) { c.Limits.MaxDurationSec = 0 },
			wantSub: "max_duration_sec",
		},
		{
			name:    "unknown store backend",
			mutate:  func(c *Config) { c.Store.Backend = "postgres" },
			wantSub: "store.backend",
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Cache.Backend = "redis" },
			wantSub: "redis_addr",
		},
		{
			name:    "bad stt preference",
			mutate:  func(c *Config) { c.STT.PreferenceDefault = "fastest" },
			wantSub: "stt.preference_default",
		},
		{
			name:    "bad language tag",
			mutate:  func(c *Config) { c.STT.LanguageDefault = "not a tag!!" },
			wantSub: "language_default",
		},
		{
			name:    "unknown llm provider",
			mutate:  func(c *Config) { c.LLM.Provider = "homegrown" },
			wantSub: "llm.provider",
		},
		{
			name:    "zero stage timeout",
			mutate:  func(c *Config) { c.Pipeline.StageTimeouts.Probe = 0 },
			wantSub: "stage_timeouts.probe",
		},
		{
			name:    "zero adapter limit",
			mutate:  func(c *Config) { c.Pipeline.AdapterLimits.STT = 0 },
			wantSub: "adapter_limits.stt",
		},
		{
			name:    "telemetry bad exporter",
			mutate:  func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "udp" },
			wantSub: "telemetry.exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestConfig_StorePath(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/var/lib/reeldoc"
	cfg.Store.Path = "sessions.db"
	if got := cfg.StorePath(); got != filepath.Join("/var/lib/reeldoc", "sessions.db") {
		t.Errorf("StorePath() = %q", got)
	}

	cfg.Store.Path = "/absolute/sessions.db"
	if got := cfg.StorePath(); got != "/absolute/sessions.db" {
		t.Errorf("StorePath() absolute = %q", got)
	}
}

func TestConfig_EffectiveConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Concurrency = 3
	if got := cfg.EffectiveConcurrency(); got != 3 {
		t.Errorf("EffectiveConcurrency() = %d, want 3", got)
	}

	cfg.Pipeline.Concurrency = 0
	if got := cfg.EffectiveConcurrency(); got < 1 {
		t.Errorf("EffectiveConcurrency() with 0 must fall back to NumCPU, got %d", got)
	}
}
