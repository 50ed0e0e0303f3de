// SPDX-License-Identifier: MIT

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/generate"
	"github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/prompt"
	"github.com/reeldoc/reeldoc/internal/trace"
)

// maxChunkParallelism bounds concurrent chunk workers; the per-capability
// gates still apply inside each worker.
const maxChunkParallelism = 4

type chunkSpan struct {
	index int
	start float64
	end   float64
}

func (c chunkSpan) length() float64 { return c.end - c.start }

type chunkResult struct {
	span   chunkSpan
	doc    model.Document
	frames []model.Keyframe
}

// runSegmented covers stages five and six chunk by chunk. Moment selection
// stays global; each chunk extracts frames and generates a document section
// for the moments that fall inside its window, and the sections concatenate
// in source order.
func (r *Runner) runSegmented(ctx context.Context, conf Config, st *runState) error {
	chunks := splitChunks(st.info.DurationSec, conf.ChunkSec)
	limit := len(chunks)
	if limit > maxChunkParallelism {
		limit = maxChunkParallelism
	}
	st.rec.Note("segments", trace.Attrs{
		"chunks":      len(chunks),
		"parallelism": limit,
		"chunk_sec":   conf.ChunkSec,
	})

	maxPerChunk := st.opts.MaxKeyframes / len(chunks)
	if maxPerChunk < 1 {
		maxPerChunk = 1
	}

	results := make([]*chunkResult, len(chunks))
	var completed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, ch := range chunks {
		g.Go(func() error {
			res, err := r.runChunk(gctx, conf, st, ch, maxPerChunk)
			if err != nil {
				return err
			}
			results[ch.index] = res
			done := completed.Add(1)
			pct := progressSelect + int(float64(progressGenerate-progressSelect)*float64(done)/float64(len(chunks)))
			st.rep.within(gctx, fmt.Sprintf("segments %d/%d", done, len(chunks)), pct)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var kfs []model.Keyframe
	for _, res := range results {
		if res == nil {
			continue
		}
		kfs = append(kfs, res.frames...)
	}
	sort.SliceStable(kfs, func(i, j int) bool { return kfs[i].TimestampSec < kfs[j].TimestampSec })
	for i := range kfs {
		kfs[i].Index = i
	}
	st.keyframes = kfs

	doc, err := concatSections(st.mode, results)
	if err != nil {
		return fault.Wrap(err, "segments", fault.Internal)
	}
	st.doc = doc

	if err := r.Manager.SetKeyframes(ctx, st.id, st.keyframes); err != nil {
		return fault.New(fault.Internal, "segments", "record keyframes", err)
	}
	if err := r.persistDoc(st); err != nil {
		return fault.Wrap(err, "segments", fault.Internal)
	}
	if err := r.Manager.AddArtifacts(ctx, st.id, st.artifacts); err != nil {
		return fault.New(fault.Internal, "segments", "record artifacts", err)
	}
	st.rep.boundary(ctx, "generate", progressGenerate)
	return nil
}

// runChunk handles one window. A chunk with no moment coverage is skipped
// and contributes nothing to the document.
func (r *Runner) runChunk(ctx context.Context, conf Config, st *runState, ch chunkSpan, maxFrames int) (*chunkResult, error) {
	moments := clipMoments(st.moments, ch.start, ch.end)
	if len(moments) == 0 {
		st.rec.Note("segments", trace.Attrs{"chunk": ch.index, "skipped": "no_moments"})
		return nil, nil
	}
	st.rec.Note("segments", trace.Attrs{
		"chunk":     ch.index,
		"start_sec": ch.start,
		"end_sec":   ch.end,
		"moments":   len(moments),
	})

	res := &chunkResult{span: ch}

	err := r.runStage(ctx, st, "extract", conf.Timeouts.Extract, fault.FrameExtractionFailed, func(sctx context.Context) error {
		kfs, err := r.extractFrames(sctx, st, moments, maxFrames)
		if err != nil {
			return err
		}
		res.frames = kfs
		return nil
	})
	if err != nil {
		return nil, err
	}

	chunkTranscript := clipTranscript(st.transcript, ch.start, ch.end)
	err = r.runStage(ctx, st, "generate", conf.Timeouts.Generate, fault.Internal, func(sctx context.Context) error {
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
			DurationSec: ch.length(),
			Transcript:  chunkTranscript,
			Moments:     moments,
			Frames:      r.loadFrames(st, res.frames),
		})
		release()
		if err != nil {
			return err
		}
		res.doc = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// splitChunks cuts [0, duration) into windows of chunkSec. A tail shorter
// than one second folds into the previous window.
func splitChunks(duration, chunkSec float64) []chunkSpan {
	if chunkSec <= 0 {
		chunkSec = DefaultChunkSec
	}
	var out []chunkSpan
	for start := 0.0; start < duration; start += chunkSec {
		end := start + chunkSec
		if end > duration {
			end = duration
		}
		if duration-start < 1 && len(out) > 0 {
			out[len(out)-1].end = duration
			break
		}
		out = append(out, chunkSpan{index: len(out), start: start, end: end})
	}
	if len(out) == 0 {
		out = append(out, chunkSpan{index: 0, start: 0, end: duration})
	}
	return out
}

// clipMoments intersects the moments with [start, end) and clips them to
// the window. Key timestamps outside the window are dropped.
func clipMoments(moments []model.Moment, start, end float64) []model.Moment {
	var out []model.Moment
	for _, m := range moments {
		s, e := m.StartSec, m.EndSec
		if s < start {
			s = start
		}
		if e > end {
			e = end
		}
		if e-s <= 0.05 {
			continue
		}
		clipped := m
		clipped.StartSec = s
		clipped.EndSec = e
		clipped.KeyTimestamps = nil
		for _, ts := range m.KeyTimestamps {
			if ts >= s && ts <= e {
				clipped.KeyTimestamps = append(clipped.KeyTimestamps, ts)
			}
		}
		out = append(out, clipped)
	}
	return out
}

// clipTranscript keeps the segments overlapping [start, end).
func clipTranscript(t model.Transcript, start, end float64) model.Transcript {
	out := model.Transcript{Language: t.Language, AdapterUsed: t.AdapterUsed}
	for _, seg := range t.Segments {
		if seg.EndSec > start && seg.StartSec < end {
			out.Segments = append(out.Segments, seg)
		}
	}
	return out
}

// concatSections joins the chunk documents in source order. Markdown gets a
// part heading per section; JSON becomes an array of part objects carrying
// the raw section payloads.
func concatSections(rec *prompt.Record, results []*chunkResult) (model.Document, error) {
	var kept []*chunkResult
	for _, res := range results {
		if res != nil {
			kept = append(kept, res)
		}
	}
	if len(kept) == 0 {
		return model.Document{}, fmt.Errorf("no chunk produced output")
	}

	format := rec.OutputFormat
	if format == "" {
		format = prompt.FormatMarkdown
	}

	if format == prompt.FormatJSON {
		type part struct {
			Part     int             `json:"part"`
			StartSec float64         `json:"start_sec"`
			EndSec   float64         `json:"end_sec"`
			Doc      json.RawMessage `json:"doc"`
		}
		parts := make([]part, 0, len(kept))
		for i, res := range kept {
			parts = append(parts, part{
				Part:     i + 1,
				StartSec: res.span.start,
				EndSec:   res.span.end,
				Doc:      json.RawMessage(res.doc.Content),
			})
		}
		data, err := json.Marshal(parts)
		if err != nil {
			return model.Document{}, fmt.Errorf("assemble json parts: %w", err)
		}
		return model.Document{Format: prompt.FormatJSON, Content: data}, nil
	}

	var b bytes.Buffer
	for i, res := range kept {
		if len(kept) > 1 {
			fmt.Fprintf(&b, "## Part %d of %d (%s - %s)\n\n", i+1, len(kept),
				formatClock(res.span.start), formatClock(res.span.end))
		}
		b.Write(bytes.TrimSpace(res.doc.Content))
		b.WriteString("\n\n")
	}
	return model.Document{Format: prompt.FormatMarkdown, Content: bytes.TrimSpace(b.Bytes())}, nil
}

func formatClock(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
