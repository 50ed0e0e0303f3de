// SPDX-License-Identifier: MIT

// Package whisperlocal runs speech recognition in-process through the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be reachable at link time via LIBRARY_PATH
// and C_INCLUDE_PATH.
package whisperlocal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/model"
)

// Name is the adapter identifier recorded in session results.
const Name = "local"

// Adapter transcribes extracted audio with a whisper.cpp model. The model
// is loaded once on first use and shared across sessions; an empty model
// path leaves the adapter permanently unavailable.
type Adapter struct {
	modelPath string
	logger    zerolog.Logger

	loadOnce sync.Once
	loadErr  error
	model    whisperlib.Model
}

// New creates the adapter without touching the model file yet.
func New(modelPath string) *Adapter {
	return &Adapter{
		modelPath: modelPath,
		logger:    log.WithComponent("stt.local"),
	}
}

// load is the lazy self-test. The first call pays for the model load; every
// later call returns the cached outcome.
func (a *Adapter) load() error {
	a.loadOnce.Do(func() {
		if a.modelPath == "" {
			a.loadErr = errors.New("no whisper model configured")
			return
		}
		m, err := whisperlib.New(a.modelPath)
		if err != nil {
			a.loadErr = fmt.Errorf("load whisper model %q: %w", a.modelPath, err)
			return
		}
		a.model = m
		a.logger.Info().Str("model", a.modelPath).Msg("whisper model loaded")
	})
	return a.loadErr
}

// Available reports whether the model loads. The first call may block on
// the load itself.
func (a *Adapter) Available() bool { return a.load() == nil }

// Name implements stt.Transcriber.
func (a *Adapter) Name() string { return Name }

// Close releases the model if it was loaded.
func (a *Adapter) Close() error {
	if a.model != nil {
		return a.model.Close()
	}
	return nil
}

// Transcribe decodes the WAV file and runs whisper inference. Each call
// creates its own whisper context; contexts are not thread-safe but the
// model is shared.
func (a *Adapter) Transcribe(ctx context.Context, audioPath, language string) (model.Transcript, error) {
	if err := a.load(); err != nil {
		return model.Transcript{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Transcript{}, err
	}

	samples, err := ReadWAVMono(audioPath)
	if err != nil {
		return model.Transcript{}, fmt.Errorf("decode %s: %w", filepath.Base(audioPath), err)
	}
	if len(samples) == 0 {
		return model.Transcript{Language: language}, nil
	}

	type inference struct {
		segments []model.TranscriptSegment
		err      error
	}
	resCh := make(chan inference, 1)
	go func() {
		segs, err := a.infer(samples, language)
		resCh <- inference{segments: segs, err: err}
	}()

	select {
	case <-ctx.Done():
		// Inference cannot be interrupted mid-flight; the goroutine
		// finishes on its own and the buffered channel lets it exit.
		return model.Transcript{}, ctx.Err()
	case r := <-resCh:
		if r.err != nil {
			return model.Transcript{}, r.err
		}
		return model.Transcript{Segments: r.segments, Language: language}, nil
	}
}

func (a *Adapter) infer(samples []float32, language string) ([]model.TranscriptSegment, error) {
	wctx, err := a.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper context: %w", err)
	}

	lang := language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		a.logger.Warn().Err(err).Str("language", lang).Msg("language hint rejected, using model default")
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper inference: %w", err)
	}

	var segments []model.TranscriptSegment
	for {
		s, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read whisper segment: %w", err)
		}
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, model.TranscriptSegment{
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
			Text:     text,
		})
	}
	return segments, nil
}
