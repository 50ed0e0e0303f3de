// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"time"
)

// mergeFileConfig merges file configuration into the runtime Config. ENV
// overrides are applied afterwards and win.
func (l *Loader) mergeFileConfig(dst *Config, src *FileConfig) error {
	l.mergeFileCore(dst, src)
	l.mergeFileLimits(dst, src)
	if err := l.mergeFilePipeline(dst, src); err != nil {
		return err
	}
	l.mergeFileStore(dst, src)
	if err := l.mergeFileCache(dst, src); err != nil {
		return err
	}
	if err := l.mergeFileSTT(dst, src); err != nil {
		return err
	}
	if err := l.mergeFileLLM(dst, src); err != nil {
		return err
	}
	l.mergeFileTelemetry(dst, src)
	l.mergeFileMedia(dst, src)
	if err := l.mergeFileSession(dst, src); err != nil {
		return err
	}
	return nil
}

func (l *Loader) mergeFileCore(dst *Config, src *FileConfig) {
	setString(&dst.DataDir, src.DataDir)
	setString(&dst.PromptsDir, src.PromptsDir)
	setString(&dst.LogLevel, src.LogLevel)
}

func (l *Loader) mergeFileLimits(dst *Config, src *FileConfig) {
	if src.Limits == nil {
		return
	}
	setInt(&dst.Limits.MaxDurationSec, src.Limits.MaxDurationSec)
	setInt(&dst.Limits.MinDurationSec, src.Limits.MinDurationSec)
}

func (l *Loader) mergeFilePipeline(dst *Config, src *FileConfig) error {
	if src.Pipeline == nil {
		return nil
	}
	p := src.Pipeline
	setInt(&dst.Pipeline.ProxyFPS, p.ProxyFPS)
	setInt(&dst.Pipeline.ProxyLongEdgePx, p.ProxyLongEdgePx)
	setInt(&dst.Pipeline.MaxKeyframes, p.MaxKeyframes)
	setFloat(&dst.Pipeline.MergeGapSec, p.MergeGapSec)
	setFloat(&dst.Pipeline.MinSegmentSec, p.MinSegmentSec)
	setInt(&dst.Pipeline.ChunkSec, p.ChunkSec)
	setInt(&dst.Pipeline.Concurrency, p.Concurrency)

	if p.StageTimeouts != nil {
		st := p.StageTimeouts
		for _, field := range []struct {
			name string
			dst  *time.Duration
			src  *string
		}{
			{"stage_timeouts.probe", &dst.Pipeline.StageTimeouts.Probe, st.Probe},
			{"stage_timeouts.proxy", &dst.Pipeline.StageTimeouts.Proxy, st.Proxy},
			{"stage_timeouts.transcribe", &dst.Pipeline.StageTimeouts.Transcribe, st.Transcribe},
			{"stage_timeouts.relevance", &dst.Pipeline.StageTimeouts.Relevance, st.Relevance},
			{"stage_timeouts.extract", &dst.Pipeline.StageTimeouts.Extract, st.Extract},
			{"stage_timeouts.generate", &dst.Pipeline.StageTimeouts.Generate, st.Generate},
		} {
			if err := setDuration(field.dst, field.src, field.name); err != nil {
				return err
			}
		}
	}
	if p.AdapterLimits != nil {
		al := p.AdapterLimits
		setInt(&dst.Pipeline.AdapterLimits.Transcoder, al.Transcoder)
		setInt(&dst.Pipeline.AdapterLimits.STT, al.STT)
		setInt(&dst.Pipeline.AdapterLimits.Relevance, al.Relevance)
		setInt(&dst.Pipeline.AdapterLimits.Generator, al.Generator)
	}
	return nil
}

func (l *Loader) mergeFileStore(dst *Config, src *FileConfig) {
	if src.Store == nil {
		return
	}
	setString(&dst.Store.Backend, src.Store.Backend)
	setString(&dst.Store.Path, src.Store.Path)
}

func (l *Loader) mergeFileCache(dst *Config, src *FileConfig) error {
	if src.Cache == nil {
		return nil
	}
	setString(&dst.Cache.Backend, src.Cache.Backend)
	if err := setDuration(&dst.Cache.TTL, src.Cache.TTL, "cache.ttl"); err != nil {
		return err
	}
	setString(&dst.Cache.RedisAddr, src.Cache.RedisAddr)
	setString(&dst.Cache.RedisPassword, src.Cache.RedisPassword)
	setInt(&dst.Cache.RedisDB, src.Cache.RedisDB)
	return nil
}

func (l *Loader) mergeFileSTT(dst *Config, src *FileConfig) error {
	if src.STT == nil {
		return nil
	}
	s := src.STT
	setString(&dst.STT.PreferenceDefault, s.PreferenceDefault)
	setInt(&dst.STT.AutoLocalThresholdSec, s.AutoLocalThresholdSec)
	setString(&dst.STT.LocalModelPath, s.LocalModelPath)
	setString(&dst.STT.RemoteBaseURL, s.RemoteBaseURL)
	setString(&dst.STT.RemoteAPIKey, s.RemoteAPIKey)
	setString(&dst.STT.RemoteModel, s.RemoteModel)
	if err := setDuration(&dst.STT.RemoteTimeout, s.RemoteTimeout, "stt.remote_timeout"); err != nil {
		return err
	}
	setString(&dst.STT.LanguageDefault, s.LanguageDefault)
	return nil
}

func (l *Loader) mergeFileLLM(dst *Config, src *FileConfig) error {
	if src.LLM == nil {
		return nil
	}
	s := src.LLM
	setString(&dst.LLM.Provider, s.Provider)
	setString(&dst.LLM.BaseURL, s.BaseURL)
	setString(&dst.LLM.APIKey, s.APIKey)
	setString(&dst.LLM.ModelFast, s.ModelFast)
	setString(&dst.LLM.ModelQuality, s.ModelQuality)
	setFloat(&dst.LLM.Temperature, s.Temperature)
	setInt(&dst.LLM.MaxTokens, s.MaxTokens)
	return setDuration(&dst.LLM.Timeout, s.Timeout, "llm.timeout")
}

func (l *Loader) mergeFileTelemetry(dst *Config, src *FileConfig) {
	if src.Telemetry == nil {
		return
	}
	s := src.Telemetry
	if s.Enabled != nil {
		dst.Telemetry.Enabled = *s.Enabled
	}
	setString(&dst.Telemetry.Exporter, s.Exporter)
	setString(&dst.Telemetry.Endpoint, s.Endpoint)
	setFloat(&dst.Telemetry.SampleRate, s.SampleRate)
	setString(&dst.Telemetry.Environment, s.Environment)
}

func (l *Loader) mergeFileMedia(dst *Config, src *FileConfig) {
	if src.Media == nil {
		return
	}
	setString(&dst.Media.FFmpegPath, src.Media.FFmpegPath)
	setString(&dst.Media.FFprobePath, src.Media.FFprobePath)
}

func (l *Loader) mergeFileSession(dst *Config, src *FileConfig) error {
	if src.Session == nil {
		return nil
	}
	s := src.Session
	setInt(&dst.Session.StaleSessionSec, s.StaleSessionSec)
	if err := setDuration(&dst.Session.SweepInterval, s.SweepInterval, "session.sweep_interval"); err != nil {
		return err
	}
	if err := setDuration(&dst.Session.RetentionMemory, s.RetentionMemory, "session.retention_memory"); err != nil {
		return err
	}
	return setDuration(&dst.Session.RetentionDisk, s.RetentionDisk, "session.retention_disk")
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, field string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("config: invalid duration for %s: %q", field, *src)
	}
	*dst = d
	return nil
}
