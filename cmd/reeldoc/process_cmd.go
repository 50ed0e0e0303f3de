// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/reeldoc/reeldoc/internal/fault"
	coremodel "github.com/reeldoc/reeldoc/internal/model"
	"github.com/reeldoc/reeldoc/internal/session/manager"
	"github.com/reeldoc/reeldoc/internal/session/model"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("reeldoc process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	sub := addSubmitFlags(fs)
	jsonOut := fs.Bool("json", false, "print the result as JSON")
	metricsAddr := fs.String("metrics-listen", "", "serve Prometheus metrics on this address while the run is active")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reeldoc process <video> [flags]")
		return 2
	}

	cfg, err := g.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close(context.Background())

	meta, err := sub.metadata(fs.Arg(0), "", cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if err := a.buildRunner(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer serveMetrics(*metricsAddr, a.logger)()
	restoreSessions(ctx, a)

	id, err := submitSession(ctx, a, meta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Fprintf(os.Stderr, "session %s\n", id)

	return executeSession(ctx, a, id, *jsonOut)
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("reeldoc run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	jsonOut := fs.Bool("json", false, "print the result as JSON")
	metricsAddr := fs.String("metrics-listen", "", "serve Prometheus metrics on this address while the run is active")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reeldoc run <session-id>")
		return 2
	}

	cfg, err := g.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close(context.Background())

	if err := a.buildRunner(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer serveMetrics(*metricsAddr, a.logger)()
	restoreSessions(ctx, a)

	return executeSession(ctx, a, fs.Arg(0), *jsonOut)
}

// restoreSessions reconciles store and disk before this process starts
// driving pipelines. Only pipeline-owning commands call it: it reaps every
// session still marked running, which would clobber a run owned by another
// live process if a read-only command did the same.
func restoreSessions(ctx context.Context, a *app) {
	if _, _, err := a.manager.Restore(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("session restore failed")
	}
}

// executeSession drives one session to a terminal state, streaming progress
// lines to stderr. The exit code comes from the failure class; SIGINT lands
// here as a cancellation.
func executeSession(ctx context.Context, a *app, id string, jsonOut bool) int {
	stopWatch := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchProgress(a.manager, id, stopWatch)
	}()

	_, runErr := a.runner.Run(ctx, id)
	close(stopWatch)
	wg.Wait()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return fault.ExitCode(runErr)
	}

	sess, err := a.manager.Get(context.Background(), id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return printResult(a, sess, jsonOut)
}

// watchProgress polls the session and mirrors status changes to stderr until
// stopped. It reads with a background context so a cancelled run context
// does not cut off the final line.
func watchProgress(mgr *manager.Manager, id string, stop <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sess, err := mgr.Get(context.Background(), id)
			if err != nil {
				continue
			}
			line := fmt.Sprintf("%-9s %3d%%  %s", sess.Status, sess.Progress, sess.StageLabel)
			if line != last {
				fmt.Fprintln(os.Stderr, line)
				last = line
			}
		}
	}
}

// docView renders the document payload with its content as text instead of
// base64 bytes.
type docView struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// resultView is the JSON shape shared by process, run and result.
type resultView struct {
	SessionID          string               `json:"session_id"`
	Status             string               `json:"status"`
	Doc                *docView             `json:"doc,omitempty"`
	DocPath            string               `json:"doc_path,omitempty"`
	Artifacts          map[string]string    `json:"artifacts,omitempty"`
	Keyframes          []coremodel.Keyframe `json:"keyframes,omitempty"`
	TranscriptSegments int                  `json:"transcript_segments"`
	STTAdapterUsed     string               `json:"stt_adapter_used,omitempty"`
}

func buildResultView(a *app, sess *model.Session) resultView {
	view := resultView{
		SessionID:          sess.ID,
		Status:             string(sess.Status),
		Artifacts:          sess.ArtifactPaths,
		Keyframes:          sess.Keyframes,
		TranscriptSegments: len(sess.TranscriptSegments),
		STTAdapterUsed:     sess.STTAdapterUsed,
	}
	if sess.DocPayload != nil {
		view.Doc = &docView{
			Format:  sess.DocPayload.Format,
			Content: string(sess.DocPayload.Content),
		}
	}
	if rel, ok := sess.ArtifactPaths["doc"]; ok {
		if dir, err := a.artifacts.SessionDir(sess.ID); err == nil {
			view.DocPath = filepath.Join(dir, rel)
		}
	}
	return view
}

func printResult(a *app, sess *model.Session, jsonOut bool) int {
	view := buildResultView(a, sess)

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("session    %s\n", view.SessionID)
	fmt.Printf("status     %s\n", view.Status)
	if view.DocPath != "" {
		fmt.Printf("doc        %s\n", view.DocPath)
	}
	if view.STTAdapterUsed != "" {
		fmt.Printf("adapter    %s\n", view.STTAdapterUsed)
	}
	fmt.Printf("keyframes  %d\n", len(view.Keyframes))
	if len(view.Artifacts) > 0 {
		fmt.Println("artifacts:")
		names := make([]string, 0, len(view.Artifacts))
		for name := range view.Artifacts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-15s %s\n", name, view.Artifacts[name])
		}
	}
	return 0
}
