// SPDX-License-Identifier: MIT

package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldoc/reeldoc/internal/artifact"
	"github.com/reeldoc/reeldoc/internal/cache"
	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/generate"
	"github.com/reeldoc/reeldoc/internal/media/probe"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
	"github.com/reeldoc/reeldoc/internal/relevance"
	"github.com/reeldoc/reeldoc/internal/session/manager"
	sessmodel "github.com/reeldoc/reeldoc/internal/session/model"
	"github.com/reeldoc/reeldoc/internal/session/store"
	"github.com/reeldoc/reeldoc/internal/stt"
	"github.com/reeldoc/reeldoc/internal/trace"
)

type stubProber struct {
	mu    sync.Mutex
	info  probe.MediaInfo
	err   error
	calls int
}

func (p *stubProber) Probe(_ context.Context, _ string) (probe.MediaInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return probe.MediaInfo{}, p.err
	}
	return p.info, nil
}

type stubTranscoder struct {
	mu         sync.Mutex
	proxyErr   error
	audioErr   error
	proxyCalls int
	audioCalls int
}

func (t *stubTranscoder) BuildProxy(_ context.Context, _, output string, _, _ int) error {
	t.mu.Lock()
	t.proxyCalls++
	err := t.proxyErr
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(output, []byte("proxy-bytes"), 0o600)
}

func (t *stubTranscoder) ExtractAudio(_ context.Context, _, output string) error {
	t.mu.Lock()
	t.audioCalls++
	err := t.audioErr
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(output, []byte("wav-bytes"), 0o600)
}

type stubSpeech struct {
	mu      sync.Mutex
	out     stt.Outcome
	err     error
	block   bool
	entered chan struct{}
	calls   int
}

func (s *stubSpeech) Transcribe(ctx context.Context, _, _, _ string, _ float64) (stt.Outcome, error) {
	s.mu.Lock()
	s.calls++
	entered := s.entered
	s.entered = nil
	block := s.block
	out, err := s.out, s.err
	s.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block {
		<-ctx.Done()
		return stt.Outcome{}, ctx.Err()
	}
	if err != nil {
		return stt.Outcome{}, err
	}
	return out, nil
}

type stubAnalyzer struct {
	mu    sync.Mutex
	res   relevance.Result
	err   error
	calls int
	reqs  []relevance.Request
}

func (a *stubAnalyzer) Analyze(_ context.Context, req relevance.Request) (relevance.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.reqs = append(a.reqs, req)
	if a.err != nil {
		return relevance.Result{}, a.err
	}
	return a.res, nil
}

type stubFrames struct {
	mu       sync.Mutex
	failures int
	calls    int
	batches  [][]float64
}

func (f *stubFrames) Extract(_ context.Context, _, framesDir string, timestamps []float64) ([]model.Keyframe, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.batches = append(f.batches, append([]float64(nil), timestamps...))
	failures := f.failures
	f.mu.Unlock()
	if call <= failures {
		return nil, fmt.Errorf("ffmpeg exited with status 1")
	}
	if err := os.MkdirAll(framesDir, 0o750); err != nil {
		return nil, err
	}
	out := make([]model.Keyframe, 0, len(timestamps))
	for i, ts := range timestamps {
		name := artifact.FrameFilename(i, ts)
		if err := os.WriteFile(filepath.Join(framesDir, name), []byte("jpg"), 0o600); err != nil {
			return nil, err
		}
		out = append(out, model.Keyframe{Index: i, TimestampSec: ts, Path: path.Join(artifact.DirFrames, name)})
	}
	return out, nil
}

type stubGenerator struct {
	mu          sync.Mutex
	doc         model.Document
	err         error
	delay       time.Duration
	calls       int
	reqs        []generate.Request
	inFlight    int
	maxInFlight int
}

func (g *stubGenerator) Generate(ctx context.Context, req generate.Request) (model.Document, error) {
	g.mu.Lock()
	g.calls++
	g.reqs = append(g.reqs, req)
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	doc, err, delay := g.doc, g.err, g.delay
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.Document{}, ctx.Err()
		}
	}
	if err != nil {
		return model.Document{}, err
	}
	if len(doc.Content) == 0 {
		doc = model.Document{Format: prompt.FormatMarkdown, Content: []byte("# Sprint Demo\n\nThe dashboard shipped.")}
	}
	return doc, nil
}

type stubPrompts struct {
	recs map[string]*prompt.Record
}

func (p *stubPrompts) Get(id string) (*prompt.Record, error) {
	rec, ok := p.recs[id]
	if !ok {
		return nil, fmt.Errorf("prompt record %q not found", id)
	}
	return rec, nil
}

func testPrompts() *stubPrompts {
	return &stubPrompts{recs: map[string]*prompt.Record{
		"general_doc": {
			ID:                "general_doc",
			SystemInstruction: "Write documentation for ${title}.",
			OutputFormat:      prompt.FormatMarkdown,
		},
		"scene_detection": {
			ID:                "scene_detection",
			SystemInstruction: "List the scenes.",
			OutputFormat:      prompt.FormatJSON,
		},
		ModeSubtitleExtractor: {
			ID:                ModeSubtitleExtractor,
			SystemInstruction: "Emit subtitles.",
			OutputFormat:      prompt.FormatJSON,
		},
		RelevancePromptID: {
			ID:                RelevancePromptID,
			SystemInstruction: "Pick the relevant spans for ${keywords}.",
			OutputFormat:      prompt.FormatJSON,
		},
	}}
}

type fixture struct {
	runner   *Runner
	mgr      *manager.Manager
	arts     *artifact.Store
	prober   *stubProber
	trans    *stubTranscoder
	speech   *stubSpeech
	analyzer *stubAnalyzer
	frames   *stubFrames
	gen      *stubGenerator
	source   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	arts, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	mgr := manager.New(st, arts, manager.Config{})

	source := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, os.WriteFile(source, []byte("mp4-bytes"), 0o600))

	fx := &fixture{
		mgr:    mgr,
		arts:   arts,
		source: source,
		prober: &stubProber{info: probe.MediaInfo{
			DurationSec: 90,
			Width:       1920,
			Height:      1080,
			HasVideo:    true,
			HasAudio:    true,
			Container:   "mov,mp4,m4a,3gp,3g2,mj2",
		}},
		trans: &stubTranscoder{},
		speech: &stubSpeech{out: stt.Outcome{Transcript: model.Transcript{
			Segments: []model.TranscriptSegment{
				{StartSec: 0, EndSec: 4, Text: "Welcome to the sprint demo."},
				{StartSec: 4, EndSec: 9, Text: "The new dashboard ships today."},
			},
			Language:    "en",
			AdapterUsed: "whisper_local",
		}}},
		analyzer: &stubAnalyzer{res: relevance.Result{Moments: []model.Moment{
			{StartSec: 5, EndSec: 30, Reason: "dashboard walkthrough", KeyTimestamps: []float64{10}},
		}}},
		frames: &stubFrames{},
		gen:    &stubGenerator{},
	}
	fx.runner = &Runner{
		Manager:    mgr,
		Artifacts:  arts,
		Prompts:    testPrompts(),
		Prober:     fx.prober,
		Transcoder: fx.trans,
		Speech:     fx.speech,
		Analyzer:   fx.analyzer,
		Frames:     fx.frames,
		Generator:  fx.gen,
		Gates:      NewGates(GateLimits{}),
	}
	return fx
}

func (fx *fixture) newSession(t *testing.T, id, mode string, opts sessmodel.Options) {
	t.Helper()
	ctx := context.Background()
	_, err := fx.mgr.Create(ctx, id, sessmodel.Metadata{
		Mode:     mode,
		Title:    "Sprint demo",
		Language: "en",
		Source:   sessmodel.Source{Kind: sessmodel.SourceLocal, Path: fx.source},
		Options:  opts,
	})
	require.NoError(t, err)
	_, err = fx.mgr.Enqueue(ctx, id)
	require.NoError(t, err)
}

func readTrace(t *testing.T, arts *artifact.Store, id string) []trace.Event {
	t.Helper()
	data, err := arts.ReadFile(id, artifact.FileTrace)
	require.NoError(t, err)
	var events []trace.Event
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var ev trace.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), "trace line: %s", sc.Text())
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func traceKinds(events []trace.Event, kind trace.Kind) []string {
	var stages []string
	for _, ev := range events {
		if ev.Kind == kind {
			stages = append(stages, ev.Stage)
		}
	}
	return stages
}

func hasNote(events []trace.Event, stage, key string, want any) bool {
	for _, ev := range events {
		if ev.Kind != trace.KindNote || ev.Stage != stage {
			continue
		}
		if got, ok := ev.Attrs[key]; ok && fmt.Sprint(got) == fmt.Sprint(want) {
			return true
		}
	}
	return false
}

func TestRunner_HappyPath(t *testing.T) {
	fx := newFixture(t)
	fx.newSession(t, "run-1", "general_doc", sessmodel.Options{})

	res, err := fx.runner.Run(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, res)

	for _, name := range []string{"source", "proxy", "audio", "transcript", "transcript_srt", "moments", "doc"} {
		rel, ok := res.Artifacts[name]
		require.True(t, ok, "artifact %s missing from manifest", name)
		assert.True(t, fx.arts.Exists("run-1", rel), "artifact file %s missing on disk", rel)
	}
	assert.Equal(t, artifact.FileDocMarkdown, res.Artifacts["doc"])
	assert.Equal(t, "whisper_local", res.STTAdapterUsed)
	assert.NotEmpty(t, res.Keyframes)

	sess, err := fx.mgr.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, sessmodel.StatusCompleted, sess.Status)
	assert.Equal(t, 100, sess.Progress)
	require.NotNil(t, sess.DocPayload)
	assert.Contains(t, string(sess.DocPayload.Content), "dashboard")
	assert.Len(t, sess.Keyframes, len(res.Keyframes))

	events := readTrace(t, fx.arts, "run-1")
	starts := traceKinds(events, trace.KindStart)
	assert.Equal(t, []string{"run", "probe", "proxy", "transcribe", "select", "extract", "generate"}, starts)
	ends := traceKinds(events, trace.KindEnd)
	errsSeen := traceKinds(events, trace.KindError)
	assert.Empty(t, errsSeen)
	assert.ElementsMatch(t, starts, ends, "every started stage must end")
}

func TestRunner_OversizeRejectedBeforeIngest(t *testing.T) {
	fx := newFixture(t)
	fx.prober.info.DurationSec = DefaultMaxDurationSec + 1
	fx.newSession(t, "big-1", "general_doc", sessmodel.Options{})

	_, err := fx.runner.Run(context.Background(), "big-1")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.InputTooLarge), "got %v", err)

	sess, err := fx.mgr.Get(context.Background(), "big-1")
	require.NoError(t, err)
	assert.Equal(t, sessmodel.StatusFailed, sess.Status)
	require.NotNil(t, sess.Error)
	assert.Equal(t, string(fault.InputTooLarge), sess.Error.Kind)

	assert.Equal(t, 0, fx.trans.proxyCalls)
	assert.False(t, fx.arts.Exists("big-1", artifact.SourceName(".mp4")), "oversize source must not be copied")
}

func TestRunner_ExactLimitAccepted(t *testing.T) {
	fx := newFixture(t)
	fx.prober.info.DurationSec = DefaultMaxDurationSec
	fx.newSession(t, "edge-1", "general_doc", sessmodel.Options{})

	_, err := fx.runner.Run(context.Background(), "edge-1")
	require.NoError(t, err)
}

func TestRunner_NoVideoRejected(t *testing.T) {
	fx := newFixture(t)
	fx.prober.info.HasVideo = false
	fx.newSession(t, "audio-only", "general_doc", sessmodel.Options{})

	_, err := fx.runner.Run(context.Background(), "audio-only")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.InputInvalid), "got %v", err)
}

func TestRunner_RemoteSourceRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.mgr.Create(ctx, "remote-1", sessmodel.Metadata{
		Mode:   "general_doc",
		Source: sessmodel.Source{Kind: sessmodel.SourceRemote, URI: "https://example.com/demo.mp4"},
	})
	require.NoError(t, err)
	_, err = fx.mgr.Enqueue(ctx, "remote-1")
	require.NoError(t, err)

	_, err = fx.runner.Run(ctx, "remote-1")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.InputInvalid), "got %v", err)
	assert.Equal(t, 0, fx.prober.calls)
}

func TestRunner_UnknownModeFails(t *testing.T) {
	fx := newFixture(t)
	fx.newSession(t, "mode-1", "character_tracker", sessmodel.Options{})

	_, err := fx.runner.Run(context.Background(), "mode-1")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.InputInvalid), "got %v", err)
	assert.Contains(t, err.Error(), "character_tracker")
}

func TestRunner_NoAudioSkipsTranscription(t *testing.T) {
	fx := newFixture(t)
	fx.prober.info.HasAudio = false
	fx.newSession(t, "silent-1", "general_doc", sessmodel.Options{})

	res, err := fx.runner.Run(context.Background(), "silent-1")
	require.NoError(t, err)

	assert.Equal(t, 0, fx.speech.calls)
	assert.NotContains(t, res.Artifacts, "audio")
	assert.NotContains(t, res.Artifacts, "transcript_srt")
	assert.Contains(t, res.Artifacts, "transcript")
	require.NotEmpty(t, fx.gen.reqs)
	assert.True(t, fx.gen.reqs[0].Transcript.Empty())

	events := readTrace(t, fx.arts, "silent-1")
	assert.True(t, hasNote(events, "proxy", "audio", "absent"))
}

func TestRunner_AudioExtractionFailureDegrades(t *testing.T) {
	fx := newFixture(t)
	fx.trans.audioErr = errors.New("no audio encoder")
	fx.newSession(t, "degrade-1", "general_doc", sessmodel.Options{})

	res, err := fx.runner.Run(context.Background(), "degrade-1")
	require.NoError(t, err)

	assert.Equal(t, 0, fx.speech.calls)
	assert.NotContains(t, res.Artifacts, "audio")
	assert.Contains(t, res.Artifacts, "doc")

	events := readTrace(t, fx.arts, "degrade-1")
	assert.True(t, hasNote(events, "proxy", "audio", "extraction_failed"))
}

func TestRunner_STTFailureDegradesToEmptyTranscript(t *testing.T) {
	fx := newFixture(t)
	fx.speech.err = errors.New("whisper crashed")
	fx.newSession(t, "stt-down", "general_doc", sessmodel.Options{})

	res, err := fx.runner.Run(context.Background(), "stt-down")
	require.NoError(t, err)

	assert.True(t, res.Transcript.Empty())
	assert.Contains(t, res.Artifacts, "doc")

	events := readTrace(t, fx.arts, "stt-down")
	assert.True(t, hasNote(events, "transcribe", "degraded", "transcription_unavailable"))
}

func TestRunner_SubtitleModeRequiresTranscript(t *testing.T) {
	fx := newFixture(t)
	fx.speech.out = stt.Outcome{Transcript: model.Transcript{Language: "en"}}
	fx.newSession(t, "subs-1", ModeSubtitleExtractor, sessmodel.Options{})

	_, err := fx.runner.Run(context.Background(), "subs-1")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.TranscriptionRequired), "got %v", err)

	sess, err := fx.mgr.Get(context.Background(), "subs-1")
	require.NoError(t, err)
	assert.Equal(t, sessmodel.StatusFailed, sess.Status)
	require.NotNil(t, sess.Error)
	assert.Equal(t, string(fault.TranscriptionRequired), sess.Error.Kind)
}

func TestRunner_STTFallbackRecorded(t *testing.T) {
	fx := newFixture(t)
	fx.speech.out.FellBack = true
	fx.speech.out.PrimaryErr = errors.New("local model missing")
	fx.speech.out.Transcript.AdapterUsed = "whisper_remote"
	fx.newSession(t, "fallback-1", "general_doc", sessmodel.Options{})

	res, err := fx.runner.Run(context.Background(), "fallback-1")
	require.NoError(t, err)
	assert.Equal(t, "whisper_remote", res.STTAdapterUsed)

	sess, err := fx.mgr.Get(context.Background(), "fallback-1")
	require.NoError(t, err)
	assert.Equal(t, "whisper_remote", sess.STTAdapterUsed)

	events := readTrace(t, fx.arts, "fallback-1")
	assert.True(t, hasNote(events, "transcribe", "fallback", true))
}

func TestRunner_RelevanceCacheHitSkipsAnalyzer(t *testing.T) {
	fx := newFixture(t)
	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	fx.runner.Cache = c

	fx.newSession(t, "cache-a", "general_doc", sessmodel.Options{})
	_, err := fx.runner.Run(context.Background(), "cache-a")
	require.NoError(t, err)
	require.Equal(t, 1, fx.analyzer.calls)

	fx.newSession(t, "cache-b", "general_doc", sessmodel.Options{})
	_, err = fx.runner.Run(context.Background(), "cache-b")
	require.NoError(t, err)
	assert.Equal(t, 1, fx.analyzer.calls, "identical inputs must reuse the cached moments")

	events := readTrace(t, fx.arts, "cache-b")
	assert.True(t, hasNote(events, "select", "cache", "hit"))
	assert.True(t, fx.arts.Exists("cache-b", artifact.FileMoments))
}

func TestRunner_DegradedRelevanceNotCached(t *testing.T) {
	fx := newFixture(t)
	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	fx.runner.Cache = c
	fx.analyzer.res = relevance.Result{
		Moments:    []model.Moment{{StartSec: 0, EndSec: 90, Reason: "fallback"}},
		Fallback:   true,
		FailureErr: errors.New("llm unreachable"),
	}

	fx.newSession(t, "degen-a", "general_doc", sessmodel.Options{})
	_, err := fx.runner.Run(context.Background(), "degen-a")
	require.NoError(t, err)

	fx.newSession(t, "degen-b", "general_doc", sessmodel.Options{})
	_, err = fx.runner.Run(context.Background(), "degen-b")
	require.NoError(t, err)
	assert.Equal(t, 2, fx.analyzer.calls, "degraded results must not be served from cache")

	events := readTrace(t, fx.arts, "degen-a")
	assert.True(t, hasNote(events, "select", "degraded", "full_span_fallback"))
}

func TestRunner_FrameRetryHalvesDensity(t *testing.T) {
	fx := newFixture(t)
	fx.frames.failures = 1
	fx.newSession(t, "retry-1", "general_doc", sessmodel.Options{})

	_, err := fx.runner.Run(context.Background(), "retry-1")
	require.NoError(t, err)

	require.Equal(t, 2, fx.frames.calls)
	require.Len(t, fx.frames.batches, 2)
	assert.Less(t, len(fx.frames.batches[1]), len(fx.frames.batches[0]),
		"retry must plan fewer timestamps")
	assert.NotEmpty(t, fx.frames.batches[1])

	events := readTrace(t, fx.arts, "retry-1")
	assert.True(t, hasNote(events, "extract", "retry", "half_density"))
}

func TestRunner_BothExtractionAttemptsFail(t *testing.T) {
	fx := newFixture(t)
	fx.frames.failures = 2
	fx.newSession(t, "retry-2", "general_doc", sessmodel.Options{})

	_, err := fx.runner.Run(context.Background(), "retry-2")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.FrameExtractionFailed), "got %v", err)

	sess, err := fx.mgr.Get(context.Background(), "retry-2")
	require.NoError(t, err)
	assert.Equal(t, sessmodel.StatusFailed, sess.Status)
}

func TestRunner_StageTimeoutFailsSession(t *testing.T) {
	fx := newFixture(t)
	fx.speech.block = true
	fx.runner.Conf.Timeouts.Transcribe = 50 * time.Millisecond
	fx.newSession(t, "slow-1", "general_doc", sessmodel.Options{})

	_, err := fx.runner.Run(context.Background(), "slow-1")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.StageTimeout), "got %v", err)

	sess, err := fx.mgr.Get(context.Background(), "slow-1")
	require.NoError(t, err)
	assert.Equal(t, sessmodel.StatusFailed, sess.Status)
	require.NotNil(t, sess.Error)
	assert.Equal(t, string(fault.StageTimeout), sess.Error.Kind)
}

func TestRunner_CancelMidRun(t *testing.T) {
	fx := newFixture(t)
	entered := make(chan struct{})
	fx.speech.block = true
	fx.speech.entered = entered
	fx.newSession(t, "cancel-1", "general_doc", sessmodel.Options{})

	done := make(chan error, 1)
	go func() {
		_, err := fx.runner.Run(context.Background(), "cancel-1")
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("transcription never started")
	}
	require.NoError(t, fx.mgr.Cancel(context.Background(), "cancel-1"))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, fault.IsKind(err, fault.Cancelled), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not unwind after cancel")
	}

	sess, err := fx.mgr.Get(context.Background(), "cancel-1")
	require.NoError(t, err)
	assert.Equal(t, sessmodel.StatusCancelled, sess.Status)
}

func TestRunner_JSONModeWritesDocJSON(t *testing.T) {
	fx := newFixture(t)
	fx.gen.doc = model.Document{Format: prompt.FormatJSON, Content: []byte(`{"scenes":[{"start":5.0,"end":30.0}]}`)}
	fx.newSession(t, "json-1", "scene_detection", sessmodel.Options{})

	res, err := fx.runner.Run(context.Background(), "json-1")
	require.NoError(t, err)
	assert.Equal(t, artifact.FileDocJSON, res.Artifacts["doc"])
	assert.True(t, fx.arts.Exists("json-1", artifact.FileDocJSON))
	assert.False(t, fx.arts.Exists("json-1", artifact.FileDocMarkdown))
}

func TestRunner_RunRequiresQueuedSession(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.mgr.Create(ctx, "draft-1", sessmodel.Metadata{
		Mode:   "general_doc",
		Source: sessmodel.Source{Kind: sessmodel.SourceLocal, Path: fx.source},
	})
	require.NoError(t, err)

	_, err = fx.runner.Run(ctx, "draft-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal status transition")
}
