// SPDX-License-Identifier: MIT

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/reeldoc/reeldoc/internal/artifact"
	"github.com/reeldoc/reeldoc/internal/cache"
	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/generate"
	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/media/frames"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
	"github.com/reeldoc/reeldoc/internal/relevance"
	"github.com/reeldoc/reeldoc/internal/stt"
	"github.com/reeldoc/reeldoc/internal/telemetry"
	"github.com/reeldoc/reeldoc/internal/trace"
)

// stageProbe validates the source before anything is copied or transcoded.
func (r *Runner) stageProbe(ctx context.Context, conf Config, st *runState) error {
	err := r.runStage(ctx, st, "probe", conf.Timeouts.Probe, fault.InputInvalid, func(sctx context.Context) error {
		info, err := r.Prober.Probe(sctx, st.sess.Source.Path)
		if err != nil {
			return err
		}
		if !info.HasVideo {
			return fault.Newf(fault.InputInvalid, "probe", "source has no video stream")
		}
		if info.DurationSec < 1 {
			return fault.Newf(fault.InputInvalid, "probe", "duration %.2fs is below the 1s minimum", info.DurationSec)
		}
		// Exactly the limit is still accepted.
		if info.DurationSec > conf.MaxDurationSec {
			return fault.Newf(fault.InputTooLarge, "probe", "duration %.1fs exceeds the %.0fs limit",
				info.DurationSec, conf.MaxDurationSec)
		}
		st.info = info
		oteltrace.SpanFromContext(sctx).SetAttributes(telemetry.MediaAttributes(
			info.DurationSec, info.Container, info.VideoCodec, info.Width, info.Height)...)
		return nil
	})
	if err != nil {
		return err
	}

	st.rec.Note("probe", trace.Attrs{
		"duration_sec": st.info.DurationSec,
		"width":        st.info.Width,
		"height":       st.info.Height,
		"has_audio":    st.info.HasAudio,
		"container":    st.info.Container,
	})
	st.rep.boundary(ctx, "probe", progressProbe)
	return nil
}

// stageProxy ingests the source into the session directory, builds the
// analysis proxy and extracts the audio track. A failed audio extraction
// degrades to a transcript-less run instead of failing the session.
func (r *Runner) stageProxy(ctx context.Context, conf Config, st *runState) error {
	err := r.runStage(ctx, st, "proxy", conf.Timeouts.Proxy, fault.PreprocessingFailed, func(sctx context.Context) error {
		if err := r.ingestSource(st); err != nil {
			return err
		}

		release, err := acquire(sctx, r.Gates.transcoder)
		if err != nil {
			return err
		}
		defer release()

		proxyAbs, err := r.Artifacts.Path(st.id, artifact.FileProxy)
		if err != nil {
			return err
		}
		if err := r.Transcoder.BuildProxy(sctx, st.sourceAbs, proxyAbs, st.info.Width, st.info.Height); err != nil {
			return err
		}
		st.proxyAbs = proxyAbs
		st.artifacts["proxy"] = artifact.FileProxy

		if !st.info.HasAudio {
			st.rec.Note("proxy", trace.Attrs{"audio": "absent"})
			return nil
		}
		audioAbs, err := r.Artifacts.Path(st.id, artifact.FileAudio)
		if err != nil {
			return err
		}
		if err := r.Transcoder.ExtractAudio(sctx, st.sourceAbs, audioAbs); err != nil {
			wrapped := fault.Wrap(err, "proxy", fault.PreprocessingFailed)
			switch fault.KindOf(wrapped) {
			case fault.Cancelled, fault.StageTimeout:
				return wrapped
			}
			st.rec.Note("proxy", trace.Attrs{"audio": "extraction_failed", "error": err.Error()})
			logger := log.WithComponent("pipeline")
			logger.Warn().
				Err(err).
				Str(log.FieldSessionID, st.id).
				Msg("audio extraction failed, continuing without transcript")
			return nil
		}
		st.audioAbs = audioAbs
		st.artifacts["audio"] = artifact.FileAudio
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.Manager.AddArtifacts(ctx, st.id, st.artifacts); err != nil {
		return fault.New(fault.Internal, "proxy", "record artifacts", err)
	}
	st.rep.boundary(ctx, "proxy", progressProxy)
	return nil
}

// ingestSource links or copies the original file into the session directory
// so later stages never depend on the caller keeping it in place.
func (r *Runner) ingestSource(st *runState) error {
	rel := artifact.SourceName(filepath.Ext(st.sess.Source.Path))
	dst, err := r.Artifacts.Path(st.id, rel)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		st.sourceAbs = dst
		st.artifacts["source"] = rel
		return nil
	}
	if _, err := r.Artifacts.EnsureSession(st.id); err != nil {
		return err
	}
	// Hardlink when source and data dir share a filesystem, copy otherwise.
	if err := os.Link(st.sess.Source.Path, dst); err != nil {
		f, err := os.Open(st.sess.Source.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fault.New(fault.InputInvalid, "proxy", "source file missing", err)
			}
			return fault.New(fault.InputInvalid, "proxy", "source file unreadable", err)
		}
		defer f.Close()
		if err := r.Artifacts.Put(st.id, rel, f); err != nil {
			return err
		}
	}
	st.sourceAbs = dst
	st.artifacts["source"] = rel
	return nil
}

// stageTranscribe produces the transcript. Adapter failures degrade to an
// empty transcript except for the subtitle mode, which has nothing to emit
// without one.
func (r *Runner) stageTranscribe(ctx context.Context, conf Config, st *runState) error {
	err := r.runStage(ctx, st, "transcribe", conf.Timeouts.Transcribe, fault.TranscriptionUnavailable, func(sctx context.Context) error {
		switch {
		case st.audioAbs == "":
			st.transcript = model.Transcript{Language: st.sess.Language}
			st.rec.Note("transcribe", trace.Attrs{"skipped": "no_audio"})
		default:
			release, err := acquire(sctx, r.Gates.stt)
			if err != nil {
				return err
			}
			out, err := r.Speech.Transcribe(sctx, st.audioAbs, st.sess.Language, st.sess.STTPreference, st.info.DurationSec)
			release()
			if err != nil {
				wrapped := fault.Wrap(err, "transcribe", fault.TranscriptionUnavailable)
				switch fault.KindOf(wrapped) {
				case fault.Cancelled, fault.StageTimeout:
					return wrapped
				}
				st.transcript = model.Transcript{Language: st.sess.Language}
				st.rec.Note("transcribe", trace.Attrs{"degraded": "transcription_unavailable", "error": err.Error()})
			} else {
				st.transcript = out.Transcript
				oteltrace.SpanFromContext(sctx).SetAttributes(telemetry.STTAttributes(
					out.Transcript.AdapterUsed, out.Transcript.Language,
					len(out.Transcript.Segments), out.FellBack)...)
				if out.FellBack {
					attrs := trace.Attrs{"fallback": true, "adapter": out.Transcript.AdapterUsed}
					if out.PrimaryErr != nil {
						attrs["primary_error"] = out.PrimaryErr.Error()
					}
					st.rec.Note("transcribe", attrs)
				}
			}
		}

		if st.transcript.Empty() && st.sess.Mode == ModeSubtitleExtractor {
			return fault.Newf(fault.TranscriptionRequired, "transcribe",
				"mode %s requires a transcript and none could be produced", ModeSubtitleExtractor)
		}

		if err := r.Artifacts.WriteJSON(st.id, artifact.FileTranscript, st.transcript); err != nil {
			return err
		}
		st.artifacts["transcript"] = artifact.FileTranscript

		if !st.transcript.Empty() {
			var buf bytes.Buffer
			if err := stt.WriteSRT(&buf, st.transcript.Segments); err != nil {
				return err
			}
			if err := r.Artifacts.PutBytes(st.id, artifact.FileTranscriptSRT, buf.Bytes()); err != nil {
				return err
			}
			st.artifacts["transcript_srt"] = artifact.FileTranscriptSRT
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.Manager.SetTranscript(ctx, st.id, st.transcript.Segments, st.transcript.AdapterUsed); err != nil {
		return fault.New(fault.Internal, "transcribe", "record transcript", err)
	}
	if err := r.Manager.AddArtifacts(ctx, st.id, st.artifacts); err != nil {
		return fault.New(fault.Internal, "transcribe", "record artifacts", err)
	}
	st.rep.boundary(ctx, "transcribe", progressTranscribe)
	return nil
}

// stageSelect picks the relevant moments, consulting the analysis cache
// first. Degraded full-span fallbacks are never cached.
func (r *Runner) stageSelect(ctx context.Context, conf Config, st *runState) error {
	err := r.runStage(ctx, st, "select", conf.Timeouts.Relevance, fault.RelevanceUnavailable, func(sctx context.Context) error {
		rec, err := r.Prompts.Get(RelevancePromptID)
		if err != nil {
			return fault.New(fault.Internal, "select", fmt.Sprintf("prompt record %q missing", RelevancePromptID), err)
		}

		key := cache.Key("relevance", rec.ID, rec.SystemInstruction,
			st.transcript.FullText(),
			strings.Join(st.opts.Keywords, ","),
			fmt.Sprintf("%.3f|%.1f|%.1f", st.info.DurationSec, st.opts.MergeGapSec, st.opts.MinSegmentSec))
		if data, ok := r.cacheGet(key); ok {
			var cached []model.Moment
			if json.Unmarshal(data, &cached) == nil && len(cached) > 0 {
				st.moments = cached
				st.rec.Note("select", trace.Attrs{"cache": "hit", "moments": len(cached)})
				return r.persistMoments(st)
			}
		}

		release, err := acquire(sctx, r.Gates.relevance)
		if err != nil {
			return err
		}
		res, err := r.Analyzer.Analyze(sctx, relevance.Request{
			Record:      *rec,
			ProxyPath:   st.proxyAbs,
			Transcript:  st.transcript,
			Keywords:    st.opts.Keywords,
			DurationSec: st.info.DurationSec,
			MergeGapSec: st.opts.MergeGapSec,
			MinSpanSec:  st.opts.MinSegmentSec,
		})
		release()
		if err != nil {
			return err
		}
		st.moments = res.Moments
		if res.Fallback {
			attrs := trace.Attrs{"degraded": "full_span_fallback", "moments": len(res.Moments)}
			if res.FailureErr != nil {
				attrs["error"] = res.FailureErr.Error()
			}
			st.rec.Note("select", attrs)
		} else if data, err := json.Marshal(res.Moments); err == nil {
			r.cacheSet(key, data, conf.CacheTTL)
		}
		return r.persistMoments(st)
	})
	if err != nil {
		return err
	}

	if err := r.Manager.AddArtifacts(ctx, st.id, st.artifacts); err != nil {
		return fault.New(fault.Internal, "select", "record artifacts", err)
	}
	st.rep.boundary(ctx, "select moments", progressSelect)
	return nil
}

func (r *Runner) persistMoments(st *runState) error {
	if err := r.Artifacts.WriteJSON(st.id, artifact.FileMoments, st.moments); err != nil {
		return err
	}
	st.artifacts["moments"] = artifact.FileMoments
	return nil
}

// stageExtract pulls keyframes for the selected moments. One retry at half
// density before the stage fails.
func (r *Runner) stageExtract(ctx context.Context, conf Config, st *runState) error {
	err := r.runStage(ctx, st, "extract", conf.Timeouts.Extract, fault.FrameExtractionFailed, func(sctx context.Context) error {
		kfs, err := r.extractFrames(sctx, st, st.moments, st.opts.MaxKeyframes)
		if err != nil {
			return err
		}
		st.keyframes = kfs
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.Manager.SetKeyframes(ctx, st.id, st.keyframes); err != nil {
		return fault.New(fault.Internal, "extract", "record keyframes", err)
	}
	st.rep.boundary(ctx, "extract frames", progressExtract)
	return nil
}

// extractFrames plans timestamps for the given moments and runs the
// extractor under the transcoder gate. Shared between the whole-video and
// segmented paths; frames land in the session's frames directory either way.
func (r *Runner) extractFrames(ctx context.Context, st *runState, moments []model.Moment, maxFrames int) ([]model.Keyframe, error) {
	ts := frames.PlanTimestamps(moments, st.info.DurationSec, maxFrames, r.Conf.FrameDensity)
	if len(ts) == 0 {
		st.rec.Note("extract", trace.Attrs{"skipped": "no_timestamps"})
		return nil, nil
	}

	release, err := acquire(ctx, r.Gates.transcoder)
	if err != nil {
		return nil, err
	}
	defer release()

	dir, err := r.Artifacts.EnsureSession(st.id)
	if err != nil {
		return nil, err
	}
	framesDir := filepath.Join(dir, artifact.DirFrames)

	kfs, err := r.Frames.Extract(ctx, st.sourceAbs, framesDir, ts)
	if err == nil {
		return kfs, nil
	}
	wrapped := fault.Wrap(err, "extract", fault.FrameExtractionFailed)
	switch fault.KindOf(wrapped) {
	case fault.Cancelled, fault.StageTimeout:
		return nil, wrapped
	}

	// One retry at half density. Leftover frames from the failed attempt
	// are harmless; only the returned list enters the manifest.
	density := r.Conf.FrameDensity
	if density <= 0 {
		density = frames.DefaultDensity
	}
	retryTS := frames.PlanTimestamps(moments, st.info.DurationSec, maxFrames, density/2)
	st.rec.Note("extract", trace.Attrs{"retry": "half_density", "timestamps": len(retryTS), "error": err.Error()})
	return r.Frames.Extract(ctx, st.sourceAbs, framesDir, retryTS)
}

// stageGenerate renders the document from the transcript, moments and
// keyframes, consulting the analysis cache first.
func (r *Runner) stageGenerate(ctx context.Context, conf Config, st *runState) error {
	err := r.runStage(ctx, st, "generate", conf.Timeouts.Generate, fault.Internal, func(sctx context.Context) error {
		key := r.generateKey(st, st.moments, st.keyframes)
		if data, ok := r.cacheGet(key); ok {
			var cached model.Document
			if json.Unmarshal(data, &cached) == nil && len(cached.Content) > 0 {
				st.doc = cached
				st.rec.Note("generate", trace.Attrs{"cache": "hit"})
				return r.persistDoc(st)
			}
		}

		release, err := acquire(sctx, r.Gates.generator)
		if err != nil {
			return err
		}
		doc, err := r.Generator.Generate(sctx, generate.Request{
			Record:      *st.mode,
			Title:       st.sess.Title,
			Language:    st.sess.Language,
			Attendees:   st.opts.Attendees,
			Keywords:    st.opts.Keywords,
			DurationSec: st.info.DurationSec,
			Transcript:  st.transcript,
			Moments:     st.moments,
			Frames:      r.loadFrames(st, st.keyframes),
		})
		release()
		if err != nil {
			return err
		}
		st.doc = doc
		if data, err := json.Marshal(doc); err == nil {
			r.cacheSet(key, data, conf.CacheTTL)
		}
		return r.persistDoc(st)
	})
	if err != nil {
		return err
	}

	if err := r.Manager.AddArtifacts(ctx, st.id, st.artifacts); err != nil {
		return fault.New(fault.Internal, "generate", "record artifacts", err)
	}
	st.rep.boundary(ctx, "generate", progressGenerate)
	return nil
}

// generateKey digests every input that shapes the document.
func (r *Runner) generateKey(st *runState, moments []model.Moment, kfs []model.Keyframe) string {
	momentsJSON, _ := json.Marshal(moments)
	framesJSON, _ := json.Marshal(kfs)
	return cache.Key("generate", st.mode.ID, st.mode.SystemInstruction,
		st.sess.Title, st.sess.Language,
		strings.Join(st.opts.Keywords, ","),
		strings.Join(st.opts.Attendees, ","),
		st.transcript.FullText(),
		string(momentsJSON), string(framesJSON),
		fmt.Sprintf("%.3f", st.info.DurationSec))
}

// loadFrames reads the keyframe images for the generation prompt. A frame
// that cannot be read degrades to metadata-only rather than failing the run.
func (r *Runner) loadFrames(st *runState, kfs []model.Keyframe) []generate.Frame {
	if len(kfs) == 0 {
		return nil
	}
	out := make([]generate.Frame, 0, len(kfs))
	for _, kf := range kfs {
		data, err := r.Artifacts.ReadFile(st.id, kf.Path)
		if err != nil {
			logger := log.WithComponent("pipeline")
			logger.Debug().
				Err(err).
				Str(log.FieldSessionID, st.id).
				Str(log.FieldPath, kf.Path).
				Msg("keyframe unreadable, sending metadata only")
			data = nil
		}
		out = append(out, generate.Frame{Keyframe: kf, Data: data})
	}
	return out
}

// persistDoc writes the document under the name matching its format.
func (r *Runner) persistDoc(st *runState) error {
	name := artifact.FileDocMarkdown
	if st.doc.Format == prompt.FormatJSON {
		name = artifact.FileDocJSON
	}
	if err := r.Artifacts.PutBytes(st.id, name, st.doc.Content); err != nil {
		return err
	}
	st.artifacts["doc"] = name
	return nil
}
