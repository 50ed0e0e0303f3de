// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/artifact"
	"github.com/reeldoc/reeldoc/internal/audit"
	"github.com/reeldoc/reeldoc/internal/cache"
	"github.com/reeldoc/reeldoc/internal/config"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/pipeline"
	"github.com/reeldoc/reeldoc/internal/prompt"
	"github.com/reeldoc/reeldoc/internal/session/manager"
	"github.com/reeldoc/reeldoc/internal/session/store"
	"github.com/reeldoc/reeldoc/internal/stt/whisperlocal"
	"github.com/reeldoc/reeldoc/internal/telemetry"
)

// app is the wired object graph for one invocation. newApp builds the core
// every command needs; commands that execute the pipeline call buildRunner
// on top, so read-only commands never construct LLM or media adapters.
type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	audit     *audit.Logger
	telemetry *telemetry.Provider
	store     store.Store
	artifacts *artifact.Store
	registry  *prompt.Registry
	manager   *manager.Manager

	// set by buildRunner
	runner   *pipeline.Runner
	cache    cache.Cache
	localSTT *whisperlocal.Adapter
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "reeldoc",
		Version: version,
	})
	logger := log.WithComponent("cli")

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "reeldoc",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	artifacts, err := artifact.NewStore(cfg.SessionsDir())
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	st, err := store.Open(cfg.Store.Backend, cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	registry := prompt.NewRegistry(cfg.PromptsDir)
	if err := registry.Load(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load prompts from %s: %w", cfg.PromptsDir, err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		audit:     audit.NewLogger(),
		telemetry: provider,
		store:     st,
		artifacts: artifacts,
		registry:  registry,
		manager: manager.New(st, artifacts, manager.Config{
			CacheRetention: cfg.Session.RetentionMemory,
		}),
	}, nil
}

// Close releases everything in reverse construction order. Safe to call with
// a partially built runner graph.
func (a *app) Close(ctx context.Context) {
	if a.localSTT != nil {
		_ = a.localSTT.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.telemetry != nil {
		_ = a.telemetry.Shutdown(ctx)
	}
}

// sweeperConfig maps the session policy onto the sweeper knobs.
func (a *app) sweeperConfig() manager.SweeperConfig {
	return manager.SweeperConfig{
		Interval:       a.cfg.Session.SweepInterval,
		StaleAfter:     time.Duration(a.cfg.Session.StaleSessionSec) * time.Second,
		CacheRetention: a.cfg.Session.RetentionMemory,
	}
}
