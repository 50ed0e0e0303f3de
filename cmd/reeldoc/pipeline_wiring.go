// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"net/http"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/reeldoc/reeldoc/internal/cache"
	"github.com/reeldoc/reeldoc/internal/config"
	"github.com/reeldoc/reeldoc/internal/generate"
	"github.com/reeldoc/reeldoc/internal/llm"
	"github.com/reeldoc/reeldoc/internal/llm/anyllm"
	"github.com/reeldoc/reeldoc/internal/llm/openai"
	"github.com/reeldoc/reeldoc/internal/media/ffmpeg"
	"github.com/reeldoc/reeldoc/internal/media/frames"
	"github.com/reeldoc/reeldoc/internal/media/probe"
	"github.com/reeldoc/reeldoc/internal/media/transcode"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/pipeline"
	"github.com/reeldoc/reeldoc/internal/prompt"
	"github.com/reeldoc/reeldoc/internal/relevance"
	"github.com/reeldoc/reeldoc/internal/stt"
	"github.com/reeldoc/reeldoc/internal/stt/whisperlocal"
	"github.com/reeldoc/reeldoc/internal/stt/whisperremote"
)

// buildRunner attaches the pipeline adapter graph to the core app. Only the
// commands that actually execute a session pay for it.
func (a *app) buildRunner() error {
	cfg := a.cfg

	analysisCache, err := cache.Open(cfg.Cache.Backend, cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("open analysis cache: %w", err)
	}
	a.cache = analysisCache

	runner := ffmpeg.NewRunner(cfg.Media.FFmpegPath)
	prober := probe.NewProber(cfg.Media.FFprobePath)
	transcoder := transcode.New(runner, cfg.Pipeline.ProxyFPS, cfg.Pipeline.ProxyLongEdgePx)
	extractor := frames.New(runner)

	var local stt.Transcriber
	if cfg.STT.LocalModelPath != "" {
		a.localSTT = whisperlocal.New(cfg.STT.LocalModelPath)
		local = a.localSTT
	}
	var remote stt.Transcriber
	if cfg.STT.RemoteAPIKey != "" || cfg.STT.RemoteBaseURL != "" {
		opts := []whisperremote.Option{}
		if cfg.STT.RemoteBaseURL != "" {
			opts = append(opts, whisperremote.WithBaseURL(cfg.STT.RemoteBaseURL))
		}
		if cfg.STT.RemoteModel != "" {
			opts = append(opts, whisperremote.WithModel(cfg.STT.RemoteModel))
		}
		if cfg.STT.RemoteTimeout > 0 {
			opts = append(opts, whisperremote.WithHTTPClient(&http.Client{
				Timeout:   cfg.STT.RemoteTimeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			}))
		}
		remote = whisperremote.NewClient(cfg.STT.RemoteAPIKey, opts...)
	}
	speech := stt.NewSelector(local, remote, float64(cfg.STT.AutoLocalThresholdSec))

	fast, err := buildLLMClient(cfg.LLM, cfg.LLM.ModelFast)
	if err != nil {
		return fmt.Errorf("llm fast tier: %w", err)
	}
	quality, err := buildLLMClient(cfg.LLM, cfg.LLM.ModelQuality)
	if err != nil {
		return fmt.Errorf("llm quality tier: %w", err)
	}

	a.runner = &pipeline.Runner{
		Manager:    a.manager,
		Artifacts:  a.artifacts,
		Prompts:    a.registry,
		Prober:     prober,
		Transcoder: transcoder,
		Speech:     speech,
		Analyzer:   relevance.NewAnalyzer(fast, cfg.Pipeline.MergeGapSec, cfg.Pipeline.MinSegmentSec),
		Frames:     extractor,
		Generator: &tierGenerator{
			fast:    generate.New(fast),
			quality: generate.New(quality),
		},
		Cache: analysisCache,
		Gates: pipeline.NewGates(pipeline.GateLimits{
			Sessions:   cfg.EffectiveConcurrency(),
			Transcoder: cfg.Pipeline.AdapterLimits.Transcoder,
			STT:        cfg.Pipeline.AdapterLimits.STT,
			Relevance:  cfg.Pipeline.AdapterLimits.Relevance,
			Generator:  cfg.Pipeline.AdapterLimits.Generator,
		}),
		Conf: pipeline.Config{
			MaxDurationSec: float64(cfg.Limits.MaxDurationSec),
			ChunkSec:       float64(cfg.Pipeline.ChunkSec),
			CacheTTL:       cfg.Cache.TTL,
			Timeouts: pipeline.Timeouts{
				Probe:      cfg.Pipeline.StageTimeouts.Probe,
				Proxy:      cfg.Pipeline.StageTimeouts.Proxy,
				Transcribe: cfg.Pipeline.StageTimeouts.Transcribe,
				Relevance:  cfg.Pipeline.StageTimeouts.Relevance,
				Extract:    cfg.Pipeline.StageTimeouts.Extract,
				Generate:   cfg.Pipeline.StageTimeouts.Generate,
			},
		},
	}
	return nil
}

// buildLLMClient builds one backend for the given model identifier. The
// native openai-go client keeps image attachments; the any-llm backends are
// text-only and drop them.
func buildLLMClient(c config.LLM, modelID string) (llm.Client, error) {
	switch c.Provider {
	case "openai":
		opts := []openai.Option{}
		if c.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.BaseURL))
		}
		if c.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(c.Timeout))
		}
		return openai.New(c.APIKey, modelID, opts...)
	case "openai-compatible":
		if c.BaseURL == "" {
			return nil, fmt.Errorf("provider %q requires llm.base_url", c.Provider)
		}
		opts := []anyllmlib.Option{anyllmlib.WithBaseURL(c.BaseURL)}
		if c.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(c.APIKey))
		}
		return anyllm.New("openai", modelID, opts...)
	case "gemini", "groq", "ollama":
		opts := []anyllmlib.Option{}
		if c.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(c.APIKey))
		}
		if c.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(c.BaseURL))
		}
		return anyllm.New(c.Provider, modelID, opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", c.Provider)
	}
}

// tierGenerator routes each generation call to the fast or quality backend
// per the mode record's model preference.
type tierGenerator struct {
	fast    *generate.Generator
	quality *generate.Generator
}

func (g *tierGenerator) Generate(ctx context.Context, req generate.Request) (model.Document, error) {
	if req.Record.ModelPreference == prompt.PreferFast {
		return g.fast.Generate(ctx, req)
	}
	return g.quality.Generate(ctx, req)
}
