// SPDX-License-Identifier: MIT

package config

// FileConfig is the YAML configuration shape. All fields are optional;
// durations are Go duration strings (e.g. "5s"). Pointer fields distinguish
// "absent" from a deliberate zero during merging.
type FileConfig struct {
	DataDir    *string `yaml:"data_dir,omitempty" json:"data_dir,omitempty"`
	PromptsDir *string `yaml:"prompts_dir,omitempty" json:"prompts_dir,omitempty"`
	LogLevel   *string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	Limits    *FileLimits    `yaml:"limits,omitempty" json:"limits,omitempty"`
	Pipeline  *FilePipeline  `yaml:"pipeline,omitempty" json:"pipeline,omitempty"`
	Store     *FileStore     `yaml:"store,omitempty" json:"store,omitempty"`
	Cache     *FileCache     `yaml:"cache,omitempty" json:"cache,omitempty"`
	STT       *FileSTT       `yaml:"stt,omitempty" json:"stt,omitempty"`
	LLM       *FileLLM       `yaml:"llm,omitempty" json:"llm,omitempty"`
	Telemetry *FileTelemetry `yaml:"telemetry,omitempty" json:"telemetry,omitempty"`
	Media     *FileMedia     `yaml:"media,omitempty" json:"media,omitempty"`
	Session   *FileSession   `yaml:"session,omitempty" json:"session,omitempty"`
}

// FileLimits mirrors Limits.
type FileLimits struct {
	MaxDurationSec *int `yaml:"max_duration_sec,omitempty" json:"max_duration_sec,omitempty"`
	MinDurationSec *int `yaml:"min_duration_sec,omitempty" json:"min_duration_sec,omitempty"`
}

// FilePipeline mirrors Pipeline.
type FilePipeline struct {
	ProxyFPS        *int     `yaml:"proxy_fps,omitempty" json:"proxy_fps,omitempty"`
	ProxyLongEdgePx *int     `yaml:"proxy_long_edge_px,omitempty" json:"proxy_long_edge_px,omitempty"`
	MaxKeyframes    *int     `yaml:"max_keyframes,omitempty" json:"max_keyframes,omitempty"`
	MergeGapSec     *float64 `yaml:"merge_gap_sec,omitempty" json:"merge_gap_sec,omitempty"`
	MinSegmentSec   *float64 `yaml:"min_segment_sec,omitempty" json:"min_segment_sec,omitempty"`
	ChunkSec        *int     `yaml:"segment_pipeline_chunk_sec,omitempty" json:"segment_pipeline_chunk_sec,omitempty"`
	Concurrency     *int     `yaml:"session_concurrency,omitempty" json:"session_concurrency,omitempty"`

	StageTimeouts *FileStageTimeouts `yaml:"stage_timeouts,omitempty" json:"stage_timeouts,omitempty"`
	AdapterLimits *FileAdapterLimits `yaml:"adapter_limits,omitempty" json:"adapter_limits,omitempty"`
}

// FileStageTimeouts mirrors StageTimeouts with duration strings.
type FileStageTimeouts struct {
	Probe      *string `yaml:"probe,omitempty" json:"probe,omitempty"`
	Proxy      *string `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	Transcribe *string `yaml:"transcribe,omitempty" json:"transcribe,omitempty"`
	Relevance  *string `yaml:"relevance,omitempty" json:"relevance,omitempty"`
	Extract    *string `yaml:"extract,omitempty" json:"extract,omitempty"`
	Generate   *string `yaml:"generate,omitempty" json:"generate,omitempty"`
}

// FileAdapterLimits mirrors AdapterLimits.
type FileAdapterLimits struct {
	Transcoder *int `yaml:"transcoder,omitempty" json:"transcoder,omitempty"`
	STT        *int `yaml:"stt,omitempty" json:"stt,omitempty"`
	Relevance  *int `yaml:"relevance,omitempty" json:"relevance,omitempty"`
	Generator  *int `yaml:"generator,omitempty" json:"generator,omitempty"`
}

// FileStore mirrors Store.
type FileStore struct {
	Backend *string `yaml:"backend,omitempty" json:"backend,omitempty"`
	Path    *string `yaml:"path,omitempty" json:"path,omitempty"`
}

// FileCache mirrors Cache with the TTL as a duration string.
type FileCache struct {
	Backend       *string `yaml:"backend,omitempty" json:"backend,omitempty"`
	TTL           *string `yaml:"ttl,omitempty" json:"ttl,omitempty"`
	RedisAddr     *string `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	RedisPassword *string `yaml:"redis_password,omitempty" json:"redis_password,omitempty"`
	RedisDB       *int    `yaml:"redis_db,omitempty" json:"redis_db,omitempty"`
}

// FileSTT mirrors STT.
type FileSTT struct {
	PreferenceDefault     *string `yaml:"preference_default,omitempty" json:"preference_default,omitempty"`
	AutoLocalThresholdSec *int    `yaml:"auto_local_threshold_sec,omitempty" json:"auto_local_threshold_sec,omitempty"`
	LocalModelPath        *string `yaml:"local_model_path,omitempty" json:"local_model_path,omitempty"`
	RemoteBaseURL         *string `yaml:"remote_base_url,omitempty" json:"remote_base_url,omitempty"`
	RemoteAPIKey          *string `yaml:"remote_api_key,omitempty" json:"remote_api_key,omitempty"`
	RemoteModel           *string `yaml:"remote_model,omitempty" json:"remote_model,omitempty"`
	RemoteTimeout         *string `yaml:"remote_timeout,omitempty" json:"remote_timeout,omitempty"`
	LanguageDefault       *string `yaml:"language_default,omitempty" json:"language_default,omitempty"`
}

// FileLLM mirrors LLM.
type FileLLM struct {
	Provider     *string  `yaml:"provider,omitempty" json:"provider,omitempty"`
	BaseURL      *string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	APIKey       *string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	ModelFast    *string  `yaml:"model_fast,omitempty" json:"model_fast,omitempty"`
	ModelQuality *string  `yaml:"model_quality,omitempty" json:"model_quality,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens    *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Timeout      *string  `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// FileTelemetry mirrors Telemetry.
type FileTelemetry struct {
	Enabled     *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Exporter    *string  `yaml:"exporter,omitempty" json:"exporter,omitempty"`
	Endpoint    *string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	SampleRate  *float64 `yaml:"sample_rate,omitempty" json:"sample_rate,omitempty"`
	Environment *string  `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// FileMedia mirrors Media.
type FileMedia struct {
	FFmpegPath  *string `yaml:"ffmpeg_path,omitempty" json:"ffmpeg_path,omitempty"`
	FFprobePath *string `yaml:"ffprobe_path,omitempty" json:"ffprobe_path,omitempty"`
}

// FileSession mirrors SessionPolicy with durations as strings.
type FileSession struct {
	StaleSessionSec *int    `yaml:"stale_session_sec,omitempty" json:"stale_session_sec,omitempty"`
	SweepInterval   *string `yaml:"sweep_interval,omitempty" json:"sweep_interval,omitempty"`
	RetentionMemory *string `yaml:"retention_memory,omitempty" json:"retention_memory,omitempty"`
	RetentionDisk   *string `yaml:"retention_disk,omitempty" json:"retention_disk,omitempty"`
}

// FileFromConfig projects a resolved Config back into the file shape, with
// durations rendered as strings. Used by "config dump".
func FileFromConfig(cfg Config) FileConfig {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	flt := func(f float64) *float64 { return &f }
	boolean := func(b bool) *bool { return &b }

	return FileConfig{
		DataDir:    str(cfg.DataDir),
		PromptsDir: str(cfg.PromptsDir),
		LogLevel:   str(cfg.LogLevel),
		Limits: &FileLimits{
			MaxDurationSec: num(cfg.Limits.MaxDurationSec),
			MinDurationSec: num(cfg.Limits.MinDurationSec),
		},
		Pipeline: &FilePipeline{
			ProxyFPS:        num(cfg.Pipeline.ProxyFPS),
			ProxyLongEdgePx: num(cfg.Pipeline.ProxyLongEdgePx),
			MaxKeyframes:    num(cfg.Pipeline.MaxKeyframes),
			MergeGapSec:     flt(cfg.Pipeline.MergeGapSec),
			MinSegmentSec:   flt(cfg.Pipeline.MinSegmentSec),
			ChunkSec:        num(cfg.Pipeline.ChunkSec),
			Concurrency:     num(cfg.Pipeline.Concurrency),
			StageTimeouts: &FileStageTimeouts{
				Probe:      str(cfg.Pipeline.StageTimeouts.Probe.String()),
				Proxy:      str(cfg.Pipeline.StageTimeouts.Proxy.String()),
				Transcribe: str(cfg.Pipeline.StageTimeouts.Transcribe.String()),
				Relevance:  str(cfg.Pipeline.StageTimeouts.Relevance.String()),
				Extract:    str(cfg.Pipeline.StageTimeouts.Extract.String()),
				Generate:   str(cfg.Pipeline.StageTimeouts.Generate.String()),
			},
			AdapterLimits: &FileAdapterLimits{
				Transcoder: num(cfg.Pipeline.AdapterLimits.Transcoder),
				STT:        num(cfg.Pipeline.AdapterLimits.STT),
				Relevance:  num(cfg.Pipeline.AdapterLimits.Relevance),
				Generator:  num(cfg.Pipeline.AdapterLimits.Generator),
			},
		},
		Store: &FileStore{
			Backend: str(cfg.Store.Backend),
			Path:    str(cfg.Store.Path),
		},
		Cache: &FileCache{
			Backend:       str(cfg.Cache.Backend),
			TTL:           str(cfg.Cache.TTL.String()),
			RedisAddr:     str(cfg.Cache.RedisAddr),
			RedisPassword: str(cfg.Cache.RedisPassword),
			RedisDB:       num(cfg.Cache.RedisDB),
		},
		STT: &FileSTT{
			PreferenceDefault:     str(cfg.STT.PreferenceDefault),
			AutoLocalThresholdSec: num(cfg.STT.AutoLocalThresholdSec),
			LocalModelPath:        str(cfg.STT.LocalModelPath),
			RemoteBaseURL:         str(cfg.STT.RemoteBaseURL),
			RemoteAPIKey:          str(cfg.STT.RemoteAPIKey),
			RemoteModel:           str(cfg.STT.RemoteModel),
			RemoteTimeout:         str(cfg.STT.RemoteTimeout.String()),
			LanguageDefault:       str(cfg.STT.LanguageDefault),
		},
		LLM: &FileLLM{
			Provider:     str(cfg.LLM.Provider),
			BaseURL:      str(cfg.LLM.BaseURL),
			APIKey:       str(cfg.LLM.APIKey),
			ModelFast:    str(cfg.LLM.ModelFast),
			ModelQuality: str(cfg.LLM.ModelQuality),
			Temperature:  flt(cfg.LLM.Temperature),
			MaxTokens:    num(cfg.LLM.MaxTokens),
			Timeout:      str(cfg.LLM.Timeout.String()),
		},
		Telemetry: &FileTelemetry{
			Enabled:     boolean(cfg.Telemetry.Enabled),
			Exporter:    str(cfg.Telemetry.Exporter),
			Endpoint:    str(cfg.Telemetry.Endpoint),
			SampleRate:  flt(cfg.Telemetry.SampleRate),
			Environment: str(cfg.Telemetry.Environment),
		},
		Media: &FileMedia{
			FFmpegPath:  str(cfg.Media.FFmpegPath),
			FFprobePath: str(cfg.Media.FFprobePath),
		},
		Session: &FileSession{
			StaleSessionSec: num(cfg.Session.StaleSessionSec),
			SweepInterval:   str(cfg.Session.SweepInterval.String()),
			RetentionMemory: str(cfg.Session.RetentionMemory.String()),
			RetentionDisk:   str(cfg.Session.RetentionDisk.String()),
		},
	}
}
