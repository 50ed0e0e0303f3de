// SPDX-License-Identifier: MIT

// Package config loads and validates runtime configuration with the
// precedence defaults < config file < environment.
package config

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config is the resolved runtime configuration. The YAML file shape lives in
// FileConfig; by the time a Config exists all durations are parsed and all
// defaults applied.
type Config struct {
	DataDir    string
	PromptsDir string
	LogLevel   string

	Limits    Limits
	Pipeline  Pipeline
	Store     Store
	Cache     Cache
	STT       STT
	LLM       LLM
	Telemetry Telemetry
	Media     Media
	Session   SessionPolicy
}

// Limits bounds accepted inputs.
type Limits struct {
	MaxDurationSec int
	MinDurationSec int
}

// Pipeline holds stage tuning parameters.
type Pipeline struct {
	ProxyFPS        int
	ProxyLongEdgePx int
	MaxKeyframes    int
	MergeGapSec     float64
	MinSegmentSec   float64
	ChunkSec        int
	Concurrency     int // 0 means NumCPU

	StageTimeouts StageTimeouts
	AdapterLimits AdapterLimits
}

// StageTimeouts caps wall-clock time per pipeline stage.
type StageTimeouts struct {
	Probe      time.Duration
	Proxy      time.Duration
	Transcribe time.Duration
	Relevance  time.Duration
	Extract    time.Duration
	Generate   time.Duration
}

// AdapterLimits bounds concurrent admissions per adapter class.
type AdapterLimits struct {
	Transcoder int
	STT        int
	Relevance  int
	Generator  int
}

// Store selects the session index backend.
type Store struct {
	Backend string // memory | sqlite | badger
	Path    string // resolved under DataDir when relative
}

// Cache selects the analysis-response cache backend.
type Cache struct {
	Backend string // none | memory | redis
	TTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// STT configures the speech-to-text adapters and selection policy.
type STT struct {
	PreferenceDefault     string // fast | accurate | auto
	AutoLocalThresholdSec int
	LocalModelPath        string
	RemoteBaseURL         string
	RemoteAPIKey          string
	RemoteModel           string
	RemoteTimeout         time.Duration
	LanguageDefault       string // BCP-47 tag, empty means auto-detect
}

// LLM configures the relevance and generation model backends.
type LLM struct {
	Provider     string // gemini | openai | groq | ollama | openai-compatible
	BaseURL      string
	APIKey       string
	ModelFast    string
	ModelQuality string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
}

// Telemetry configures optional OTLP trace export.
type Telemetry struct {
	Enabled     bool
	Exporter    string // grpc | http
	Endpoint    string
	SampleRate  float64
	Environment string
}

// Media locates the external media binaries.
type Media struct {
	FFmpegPath  string
	FFprobePath string
}

// SessionPolicy tunes lifecycle housekeeping.
type SessionPolicy struct {
	StaleSessionSec int
	SweepInterval   time.Duration
	RetentionMemory time.Duration
	RetentionDisk   time.Duration // 0 means keep forever
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:    "./data",
		PromptsDir: "./prompts",
		LogLevel:   "info",
		Limits: Limits{
			MaxDurationSec: 900,
			MinDurationSec: 1,
		},
		Pipeline: Pipeline{
			ProxyFPS:        1,
			ProxyLongEdgePx: 640,
			MaxKeyframes:    25,
			MergeGapSec:     10,
			MinSegmentSec:   5,
			ChunkSec:        30,
			Concurrency:     0,
			StageTimeouts: StageTimeouts{
				Probe:      5 * time.Second,
				Proxy:      120 * time.Second,
				Transcribe: 10 * time.Minute,
				Relevance:  60 * time.Second,
				Extract:    120 * time.Second,
				Generate:   180 * time.Second,
			},
			AdapterLimits: AdapterLimits{
				Transcoder: 2,
				STT:        2,
				Relevance:  4,
				Generator:  2,
			},
		},
		Store: Store{
			Backend: "sqlite",
			Path:    "sessions.db",
		},
		Cache: Cache{
			Backend: "none",
			TTL:     24 * time.Hour,
		},
		STT: STT{
			PreferenceDefault:     "auto",
			AutoLocalThresholdSec: 300,
			RemoteModel:           "whisper-large-v3",
			RemoteTimeout:         5 * time.Minute,
		},
		LLM: LLM{
			Provider:     "gemini",
			ModelFast:    "gemini-2.5-flash",
			ModelQuality: "gemini-2.5-pro",
			Temperature:  0.2,
			MaxTokens:    8192,
			Timeout:      3 * time.Minute,
		},
		Telemetry: Telemetry{
			Enabled:    false,
			Exporter:   "grpc",
			SampleRate: 1.0,
		},
		Media: Media{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Session: SessionPolicy{
			StaleSessionSec: 600,
			SweepInterval:   60 * time.Second,
			RetentionMemory: time.Hour,
			RetentionDisk:   0,
		},
	}
}

// EffectiveConcurrency resolves the global session concurrency limit.
func (c Config) EffectiveConcurrency() int {
	if c.Pipeline.Concurrency > 0 {
		return c.Pipeline.Concurrency
	}
	return runtime.NumCPU()
}

// StorePath resolves the store path under DataDir when relative.
func (c Config) StorePath() string {
	if c.Store.Path == "" || filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, c.Store.Path)
}

// SessionsDir is the root directory for per-session artifact directories.
func (c Config) SessionsDir() string {
	return filepath.Join(c.DataDir, "sessions")
}
