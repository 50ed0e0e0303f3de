// SPDX-License-Identifier: MIT

package config

import "os"

// mergeEnvConfig merges environment variables into the runtime Config.
// ENV variables have the highest precedence.
func (l *Loader) mergeEnvConfig(cfg *Config) {
	l.mergeEnvCore(cfg)
	l.mergeEnvLimits(cfg)
	l.mergeEnvPipeline(cfg)
	l.mergeEnvStore(cfg)
	l.mergeEnvCache(cfg)
	l.mergeEnvSTT(cfg)
	l.mergeEnvLLM(cfg)
	l.mergeEnvTelemetry(cfg)
	l.mergeEnvMedia(cfg)
	l.mergeEnvSession(cfg)
}

func (l *Loader) mergeEnvCore(cfg *Config) {
	cfg.DataDir = ParseString("REELDOC_DATA", cfg.DataDir)
	cfg.PromptsDir = ParseString("REELDOC_PROMPTS", cfg.PromptsDir)
	cfg.LogLevel = ParseString("REELDOC_LOG_LEVEL", cfg.LogLevel)
}

func (l *Loader) mergeEnvLimits(cfg *Config) {
	cfg.Limits.MaxDurationSec = ParseInt("REELDOC_MAX_DURATION_SEC", cfg.Limits.MaxDurationSec)
	cfg.Limits.MinDurationSec = ParseInt("REELDOC_MIN_DURATION_SEC", cfg.Limits.MinDurationSec)
}

func (l *Loader) mergeEnvPipeline(cfg *Config) {
	cfg.Pipeline.ProxyFPS = ParseInt("REELDOC_PROXY_FPS", cfg.Pipeline.ProxyFPS)
	cfg.Pipeline.ProxyLongEdgePx = ParseInt("REELDOC_PROXY_LONG_EDGE_PX", cfg.Pipeline.ProxyLongEdgePx)
	cfg.Pipeline.MaxKeyframes = ParseInt("REELDOC_MAX_KEYFRAMES", cfg.Pipeline.MaxKeyframes)
	cfg.Pipeline.MergeGapSec = ParseFloat("REELDOC_MERGE_GAP_SEC", cfg.Pipeline.MergeGapSec)
	cfg.Pipeline.MinSegmentSec = ParseFloat("REELDOC_MIN_SEGMENT_SEC", cfg.Pipeline.MinSegmentSec)
	cfg.Pipeline.ChunkSec = ParseInt("REELDOC_CHUNK_SEC", cfg.Pipeline.ChunkSec)
	cfg.Pipeline.Concurrency = ParseInt("REELDOC_SESSION_CONCURRENCY", cfg.Pipeline.Concurrency)

	st := &cfg.Pipeline.StageTimeouts
	st.Probe = ParseDuration("REELDOC_TIMEOUT_PROBE", st.Probe)
	st.Proxy = ParseDuration("REELDOC_TIMEOUT_PROXY", st.Proxy)
	st.Transcribe = ParseDuration("REELDOC_TIMEOUT_TRANSCRIBE", st.Transcribe)
	st.Relevance = ParseDuration("REELDOC_TIMEOUT_RELEVANCE", st.Relevance)
	st.Extract = ParseDuration("REELDOC_TIMEOUT_EXTRACT", st.Extract)
	st.Generate = ParseDuration("REELDOC_TIMEOUT_GENERATE", st.Generate)

	al := &cfg.Pipeline.AdapterLimits
	al.Transcoder = ParseInt("REELDOC_LIMIT_TRANSCODER", al.Transcoder)
	al.STT = ParseInt("REELDOC_LIMIT_STT", al.STT)
	al.Relevance = ParseInt("REELDOC_LIMIT_RELEVANCE", al.Relevance)
	al.Generator = ParseInt("REELDOC_LIMIT_GENERATOR", al.Generator)
}

func (l *Loader) mergeEnvStore(cfg *Config) {
	cfg.Store.Backend = ParseString("REELDOC_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = ParseString("REELDOC_STORE_PATH", cfg.Store.Path)
}

func (l *Loader) mergeEnvCache(cfg *Config) {
	cfg.Cache.Backend = ParseString("REELDOC_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.TTL = ParseDuration("REELDOC_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.RedisAddr = ParseString("REELDOC_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = ParseString("REELDOC_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = ParseInt("REELDOC_REDIS_DB", cfg.Cache.RedisDB)
}

func (l *Loader) mergeEnvSTT(cfg *Config) {
	cfg.STT.PreferenceDefault = ParseString("REELDOC_STT_PREFERENCE", cfg.STT.PreferenceDefault)
	cfg.STT.AutoLocalThresholdSec = ParseInt("REELDOC_STT_AUTO_LOCAL_THRESHOLD_SEC", cfg.STT.AutoLocalThresholdSec)
	cfg.STT.LocalModelPath = ParseString("REELDOC_STT_LOCAL_MODEL", cfg.STT.LocalModelPath)
	cfg.STT.RemoteBaseURL = ParseString("REELDOC_STT_REMOTE_BASE_URL", cfg.STT.RemoteBaseURL)
	cfg.STT.RemoteAPIKey = ParseString("REELDOC_STT_REMOTE_API_KEY", cfg.STT.RemoteAPIKey)
	cfg.STT.RemoteModel = ParseString("REELDOC_STT_REMOTE_MODEL", cfg.STT.RemoteModel)
	cfg.STT.RemoteTimeout = ParseDuration("REELDOC_STT_REMOTE_TIMEOUT", cfg.STT.RemoteTimeout)
	cfg.STT.LanguageDefault = ParseString("REELDOC_LANGUAGE", cfg.STT.LanguageDefault)

	// Groq is the default remote transcription host; honor its conventional
	// key variable when no explicit key is set.
	if cfg.STT.RemoteAPIKey == "" {
		cfg.STT.RemoteAPIKey = os.Getenv("GROQ_API_KEY")
	}
}

func (l *Loader) mergeEnvLLM(cfg *Config) {
	cfg.LLM.Provider = ParseString("REELDOC_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.BaseURL = ParseString("REELDOC_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = ParseString("REELDOC_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.ModelFast = ParseString("REELDOC_LLM_MODEL_FAST", cfg.LLM.ModelFast)
	cfg.LLM.ModelQuality = ParseString("REELDOC_LLM_MODEL_QUALITY", cfg.LLM.ModelQuality)
	cfg.LLM.Temperature = ParseFloat("REELDOC_LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.MaxTokens = ParseInt("REELDOC_LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.Timeout = ParseDuration("REELDOC_LLM_TIMEOUT", cfg.LLM.Timeout)

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "gemini":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai", "openai-compatible":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}
}

func (l *Loader) mergeEnvTelemetry(cfg *Config) {
	cfg.Telemetry.Enabled = ParseBool("REELDOC_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString("REELDOC_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString("REELDOC_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SampleRate = ParseFloat("REELDOC_TELEMETRY_SAMPLE_RATE", cfg.Telemetry.SampleRate)
	cfg.Telemetry.Environment = ParseString("REELDOC_TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
}

func (l *Loader) mergeEnvMedia(cfg *Config) {
	cfg.Media.FFmpegPath = ParseString("REELDOC_FFMPEG", cfg.Media.FFmpegPath)
	cfg.Media.FFprobePath = ParseString("REELDOC_FFPROBE", cfg.Media.FFprobePath)
}

func (l *Loader) mergeEnvSession(cfg *Config) {
	cfg.Session.StaleSessionSec = ParseInt("REELDOC_STALE_SESSION_SEC", cfg.Session.StaleSessionSec)
	cfg.Session.SweepInterval = ParseDuration("REELDOC_SWEEP_INTERVAL", cfg.Session.SweepInterval)
	cfg.Session.RetentionMemory = ParseDuration("REELDOC_RETENTION_MEMORY", cfg.Session.RetentionMemory)
	cfg.Session.RetentionDisk = ParseDuration("REELDOC_RETENTION_DISK", cfg.Session.RetentionDisk)
}
