// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/reeldoc/reeldoc/internal/config"
	"github.com/reeldoc/reeldoc/internal/fsutil"
	"github.com/reeldoc/reeldoc/internal/session/model"
)

// submitOpts are the session-shaping flags shared by submit and process.
type submitOpts struct {
	mode         string
	title        string
	language     string
	sttPref      string
	keywords     string
	attendees    string
	segmented    bool
	maxKeyframes int
}

func addSubmitFlags(fs *flag.FlagSet) *submitOpts {
	s := &submitOpts{}
	fs.StringVar(&s.mode, "mode", "general_doc", "prompt mode id")
	fs.StringVar(&s.title, "title", "", "session title (default: video file name)")
	fs.StringVar(&s.language, "language", "", "language hint, BCP-47 (default from config)")
	fs.StringVar(&s.sttPref, "stt", "", "transcription preference: auto, fast or accurate")
	fs.BoolVar(&s.segmented, "segmented", false, "chunk the video and generate per chunk")
	fs.StringVar(&s.keywords, "keywords", "", "comma-separated relevance keywords")
	fs.StringVar(&s.attendees, "attendees", "", "comma-separated attendee names")
	fs.IntVar(&s.maxKeyframes, "max-keyframes", 0, "keyframe budget (default from config)")
	return s
}

// metadata turns the flags into a session descriptor. Exactly one of
// localPath and remoteURI must be set.
func (s *submitOpts) metadata(localPath, remoteURI string, cfg config.Config) (model.Metadata, error) {
	var src model.Source
	switch {
	case remoteURI != "" && localPath != "":
		return model.Metadata{}, errors.New("give either a video path or --remote, not both")
	case remoteURI != "":
		src = model.Source{Kind: model.SourceRemote, URI: remoteURI}
	case localPath != "":
		abs, err := filepath.Abs(localPath)
		if err != nil {
			return model.Metadata{}, fmt.Errorf("resolve %s: %w", localPath, err)
		}
		if err := fsutil.IsRegularFile(abs); err != nil {
			return model.Metadata{}, err
		}
		src = model.Source{Kind: model.SourceLocal, Path: abs}
	default:
		return model.Metadata{}, errors.New("a video path is required")
	}

	pref := s.sttPref
	if pref == "" {
		pref = cfg.STT.PreferenceDefault
	}
	if !model.ValidSTTPreference(pref) {
		return model.Metadata{}, fmt.Errorf("invalid stt preference %q (use auto, fast or accurate)", pref)
	}

	lang := s.language
	if lang == "" {
		lang = cfg.STT.LanguageDefault
	}

	title := strings.TrimSpace(s.title)
	if title == "" && src.Kind == model.SourceLocal {
		base := filepath.Base(src.Path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	opts := model.Options{
		MaxKeyframes:    s.maxKeyframes,
		SegmentPipeline: s.segmented,
		MergeGapSec:     cfg.Pipeline.MergeGapSec,
		MinSegmentSec:   cfg.Pipeline.MinSegmentSec,
		Keywords:        splitCSV(s.keywords),
		Attendees:       splitCSV(s.attendees),
	}
	if opts.MaxKeyframes <= 0 {
		opts.MaxKeyframes = cfg.Pipeline.MaxKeyframes
	}

	return model.Metadata{
		Mode:          s.mode,
		Title:         title,
		Language:      lang,
		STTPreference: pref,
		Source:        src,
		Options:       opts,
	}, nil
}

// submitSession validates the mode against the registry, creates the session
// and queues it. The caller owns printing and exit codes.
func submitSession(ctx context.Context, a *app, meta model.Metadata) (string, error) {
	if _, err := a.registry.Get(meta.Mode); err != nil {
		return "", fmt.Errorf("unknown mode %q: %w", meta.Mode, err)
	}
	id := uuid.NewString()
	if _, err := a.manager.Create(ctx, id, meta); err != nil {
		return "", err
	}
	if _, err := a.manager.Enqueue(ctx, id); err != nil {
		return "", err
	}
	a.audit.SessionSubmitted("cli", id, meta.Mode, meta.Source.Kind)
	return id, nil
}

func runSubmit(args []string) int {
	fs := flag.NewFlagSet("reeldoc submit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	sub := addSubmitFlags(fs)
	var remoteURI string
	fs.StringVar(&remoteURI, "remote", "", "record a remote source descriptor instead of a local file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: reeldoc submit <video> [flags]  (or --remote URI)")
		return 2
	}

	cfg, err := g.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	meta, err := sub.metadata(fs.Arg(0), remoteURI, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close(ctx)

	id, err := submitSession(ctx, a, meta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Println(id)
	return 0
}
