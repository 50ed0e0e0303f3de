// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/artifact"
	"github.com/reeldoc/reeldoc/internal/cache"
	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/media/probe"
	"github.com/reeldoc/reeldoc/internal/metrics"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
	"github.com/reeldoc/reeldoc/internal/session/manager"
	sessmodel "github.com/reeldoc/reeldoc/internal/session/model"
	"github.com/reeldoc/reeldoc/internal/telemetry"
	"github.com/reeldoc/reeldoc/internal/trace"
)

const tracerName = "reeldoc.pipeline"

// ModeSubtitleExtractor is the one mode that cannot degrade to an empty
// transcript: its whole output is the transcript.
const ModeSubtitleExtractor = "subtitle_extractor"

// RelevancePromptID names the prompt record for the moment-selection pass.
const RelevancePromptID = "audio_filter"

// Runner drives one session through the stages: probe, proxy, transcribe,
// select, extract, generate. All state transitions go through the Manager;
// the Runner itself is stateless and safe for concurrent Run calls.
type Runner struct {
	Manager   *manager.Manager
	Artifacts *artifact.Store
	Prompts   PromptSource

	Prober     Prober
	Transcoder Transcoder
	Speech     SpeechToText
	Analyzer   MomentAnalyzer
	Frames     FrameExtractor
	Generator  DocGenerator

	// Cache may be nil; analysis results are then recomputed every run.
	Cache cache.Cache

	Gates *Gates
	Conf  Config
}

// runState carries everything accumulated across the stages of one run.
type runState struct {
	id   string
	sess *sessmodel.Session
	opts sessmodel.Options
	mode *prompt.Record

	rec *trace.Recorder
	rep *progressReporter

	sourceAbs string
	proxyAbs  string
	audioAbs  string // empty when the source has no audio or extraction failed

	info       probe.MediaInfo
	transcript model.Transcript
	moments    []model.Moment
	keyframes  []model.Keyframe
	doc        model.Document

	// artifacts maps logical names to session-relative paths, merged into
	// the session record as stages finish.
	artifacts map[string]string
}

// Run claims the session and executes the pipeline to completion. The
// returned error is always fault-classified; terminal session state has
// already been written when Run returns.
func (r *Runner) Run(ctx context.Context, sessionID string) (*Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	conf := r.Conf.withDefaults()
	logger := log.WithComponent("pipeline").With().Str(log.FieldSessionID, sessionID).Logger()
	ctx = log.ContextWithSessionID(ctx, sessionID)

	release, err := acquire(ctx, r.Gates.sessions)
	if err != nil {
		return nil, fault.Wrap(err, "admit", fault.Cancelled)
	}
	defer release()

	sess, err := r.Manager.Claim(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A cancel request flips the session record first and then cancels this
	// context, so in-flight adapter calls unwind promptly.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	stop := r.Manager.OnCancel(sessionID, cancelRun)
	defer stop()

	// Root span for the whole run; stage spans nest under it so one session
	// exports as one trace.
	runCtx, rootSpan := telemetry.Tracer(tracerName).Start(runCtx, "pipeline.run")
	defer rootSpan.End()
	rootSpan.SetAttributes(telemetry.SessionAttributes(sessionID, sess.Mode)...)

	st := &runState{
		id:        sessionID,
		sess:      sess,
		opts:      sess.Options,
		rep:       newProgressReporter(r.Manager, sessionID),
		artifacts: make(map[string]string),
	}
	st.rec = r.openTrace(sessionID, logger)
	defer func() {
		if err := st.rec.Close(); err != nil {
			logger.Debug().Err(err).Msg("trace close failed")
		}
	}()

	logger.Info().
		Str(log.FieldMode, sess.Mode).
		Str("source", sess.Source.Path).
		Bool("segmented", st.opts.SegmentPipeline).
		Msg("run started")

	runStart := time.Now()
	res, runErr := r.execute(runCtx, conf, st)
	if runErr != nil {
		rootSpan.RecordError(runErr)
		st.rec.Error("run", runErr, trace.Attrs{"kind": string(fault.KindOf(runErr))})
		r.finalize(st, runErr, logger)
		return nil, runErr
	}

	st.rec.End("run", time.Since(runStart), trace.Attrs{"artifacts": len(st.artifacts)})
	logger.Info().
		Dur("elapsed", time.Since(runStart)).
		Int("keyframes", len(st.keyframes)).
		Msg("run finished")
	return res, nil
}

func (r *Runner) validate() error {
	switch {
	case r.Manager == nil:
		return fmt.Errorf("pipeline: manager not set")
	case r.Artifacts == nil:
		return fmt.Errorf("pipeline: artifact store not set")
	case r.Prompts == nil:
		return fmt.Errorf("pipeline: prompt source not set")
	case r.Prober == nil || r.Transcoder == nil || r.Frames == nil:
		return fmt.Errorf("pipeline: media adapters not set")
	case r.Speech == nil:
		return fmt.Errorf("pipeline: speech adapter not set")
	case r.Analyzer == nil || r.Generator == nil:
		return fmt.Errorf("pipeline: analysis adapters not set")
	case r.Gates == nil:
		return fmt.Errorf("pipeline: gates not set")
	}
	return nil
}

// execute runs the stage sequence. Any error is fault-classified with the
// stage it came from.
func (r *Runner) execute(ctx context.Context, conf Config, st *runState) (*Result, error) {
	st.rec.Start("run", trace.Attrs{"mode": st.sess.Mode, "segmented": st.opts.SegmentPipeline})

	if st.sess.Source.Kind != sessmodel.SourceLocal {
		return nil, fault.Newf(fault.InputInvalid, "run",
			"source kind %q is not runnable; fetch remote media before submitting", st.sess.Source.Kind)
	}
	rec, err := r.Prompts.Get(st.sess.Mode)
	if err != nil {
		return nil, fault.New(fault.InputInvalid, "run", fmt.Sprintf("unknown mode %q", st.sess.Mode), err)
	}
	st.mode = rec

	if err := r.stageProbe(ctx, conf, st); err != nil {
		return nil, err
	}
	if err := r.stageProxy(ctx, conf, st); err != nil {
		return nil, err
	}
	if err := r.stageTranscribe(ctx, conf, st); err != nil {
		return nil, err
	}
	if err := r.stageSelect(ctx, conf, st); err != nil {
		return nil, err
	}
	if st.opts.SegmentPipeline {
		if err := r.runSegmented(ctx, conf, st); err != nil {
			return nil, err
		}
	} else {
		if err := r.stageExtract(ctx, conf, st); err != nil {
			return nil, err
		}
		if err := r.stageGenerate(ctx, conf, st); err != nil {
			return nil, err
		}
	}
	if err := r.complete(ctx, st); err != nil {
		return nil, err
	}

	return &Result{
		SessionID:      st.id,
		Doc:            st.doc,
		Artifacts:      st.artifacts,
		Transcript:     st.transcript,
		Keyframes:      st.keyframes,
		STTAdapterUsed: st.transcript.AdapterUsed,
	}, nil
}

// runStage wraps one stage body with the shared machinery: the cancellation
// checkpoint, the trace start/end pair, the otel span, the per-stage timeout
// and the duration metric. Errors come back fault-classified under the stage
// name.
func (r *Runner) runStage(ctx context.Context, st *runState, name string, timeout time.Duration, fallback fault.Kind, fn func(context.Context) error) error {
	if err := r.checkpoint(ctx, st, name); err != nil {
		return err
	}
	st.rec.Start(name, nil)

	stageCtx, span := telemetry.Tracer(tracerName).Start(ctx, "pipeline."+name)
	defer span.End()
	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, timeout)
		defer cancel()
	}

	started := time.Now()
	err := fn(stageCtx)
	elapsed := time.Since(started)
	metrics.ObserveStageDuration(name, elapsed)

	if err != nil {
		ferr := fault.Wrap(err, name, fallback)
		kind := fault.KindOf(ferr)
		metrics.IncStageFailure(name, string(kind))
		span.RecordError(ferr)
		span.SetAttributes(telemetry.ErrorAttributes(string(kind))...)
		st.rec.Error(name, ferr, nil)
		return ferr
	}

	span.SetAttributes(telemetry.StageAttributes(name, elapsed.Milliseconds())...)
	st.rec.End(name, elapsed, nil)
	return nil
}

// checkpoint refuses to enter a stage once the run is cancelled, whether via
// context or via the manager's cancel registry.
func (r *Runner) checkpoint(ctx context.Context, st *runState, stage string) error {
	if err := ctx.Err(); err != nil {
		return fault.Wrap(err, stage, fault.Cancelled)
	}
	if r.Manager.IsCancelled(st.id) {
		return fault.Newf(fault.Cancelled, stage, "cancellation requested")
	}
	return nil
}

// complete merges the artifact manifest and moves the session to completed.
func (r *Runner) complete(ctx context.Context, st *runState) error {
	if err := r.checkpoint(ctx, st, "persist"); err != nil {
		return err
	}
	st.rep.boundary(ctx, "persist", progressGenerate)
	if err := r.Manager.Complete(ctx, st.id, st.doc, st.artifacts); err != nil {
		return fault.New(fault.Internal, "persist", "record completion", err)
	}
	return nil
}

// finalize writes the terminal state for a failed or cancelled run. It uses
// a fresh context: the run context is typically already cancelled here.
func (r *Runner) finalize(st *runState, runErr error, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kind := fault.KindOf(runErr)
	if kind == fault.Cancelled {
		if err := r.Manager.Cancel(ctx, st.id); err != nil {
			logger.Debug().Err(err).Msg("cancel after unwind failed")
		}
		logger.Info().Str(log.FieldStage, fault.StageOf(runErr)).Msg("run cancelled")
		return
	}

	msg := fault.DetailOf(runErr)
	if msg == "" {
		msg = runErr.Error()
	}
	if err := r.Manager.Fail(ctx, st.id, kind, msg); err != nil {
		logger.Debug().Err(err).Msg("session already terminal")
	}
	logger.Warn().
		Str("kind", string(kind)).
		Str(log.FieldStage, fault.StageOf(runErr)).
		Str(log.FieldReason, msg).
		Msg("run failed")
}

// openTrace opens the per-session trace sink. A failure downgrades tracing
// to a no-op rather than failing the run.
func (r *Runner) openTrace(sessionID string, logger zerolog.Logger) *trace.Recorder {
	f, err := r.Artifacts.OpenAppend(sessionID, artifact.FileTrace)
	if err != nil {
		logger.Warn().Err(err).Msg("trace file unavailable, recording disabled")
		return trace.NewNop()
	}
	return trace.NewRecorder(f, sessionID)
}

func (r *Runner) cacheGet(key string) ([]byte, bool) {
	if r.Cache == nil {
		return nil, false
	}
	return r.Cache.Get(key)
}

func (r *Runner) cacheSet(key string, value []byte, ttl time.Duration) {
	if r.Cache == nil {
		return
	}
	r.Cache.Set(key, value, ttl)
}
