// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/reeldoc/reeldoc/internal/fault"
	"github.com/reeldoc/reeldoc/internal/session/model"
)

// openCore parses nothing but the global flags and wires the core app. It
// covers every read/mutate command that never runs a pipeline.
func openCore(fs *flag.FlagSet, g *globalOpts) (*app, int) {
	cfg, err := g.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return nil, 1
	}
	a, err := newApp(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, 1
	}
	return a, 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("reeldoc status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	jsonOut := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reeldoc status <session-id>")
		return 2
	}

	a, code := openCore(fs, g)
	if a == nil {
		return code
	}
	ctx := context.Background()
	defer a.Close(ctx)

	sess, err := a.manager.Get(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		view := struct {
			Status     string             `json:"status"`
			Progress   int                `json:"progress"`
			StageLabel string             `json:"stage_label,omitempty"`
			Error      *model.ErrorRecord `json:"error,omitempty"`
		}{string(sess.Status), sess.Progress, sess.StageLabel, sess.Error}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(view)
		return 0
	}

	fmt.Printf("status     %s\n", sess.Status)
	fmt.Printf("progress   %d%%\n", sess.Progress)
	if sess.StageLabel != "" {
		fmt.Printf("stage      %s\n", sess.StageLabel)
	}
	if sess.Error != nil {
		fmt.Printf("error      %s: %s\n", sess.Error.Kind, sess.Error.Message)
	}
	return 0
}

func runResult(args []string) int {
	fs := flag.NewFlagSet("reeldoc result", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	jsonOut := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reeldoc result <session-id>")
		return 2
	}

	a, code := openCore(fs, g)
	if a == nil {
		return code
	}
	ctx := context.Background()
	defer a.Close(ctx)

	sess, err := a.manager.Get(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch sess.Status {
	case model.StatusCompleted:
		return printResult(a, sess, *jsonOut)
	case model.StatusFailed:
		if sess.Error != nil {
			fmt.Fprintf(os.Stderr, "session %s failed: %s: %s\n", sess.ID, sess.Error.Kind, sess.Error.Message)
			return fault.Kind(sess.Error.Kind).ExitCode()
		}
		fmt.Fprintf(os.Stderr, "session %s failed\n", sess.ID)
		return fault.ExitPipelineError
	case model.StatusCancelled:
		fmt.Fprintf(os.Stderr, "session %s was cancelled\n", sess.ID)
		return fault.ExitCancelled
	default:
		fmt.Fprintf(os.Stderr, "session %s is %s; no result yet\n", sess.ID, sess.Status)
		return 1
	}
}

func runCancel(args []string) int {
	fs := flag.NewFlagSet("reeldoc cancel", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reeldoc cancel <session-id>")
		return 2
	}

	a, code := openCore(fs, g)
	if a == nil {
		return code
	}
	ctx := context.Background()
	defer a.Close(ctx)

	id := fs.Arg(0)
	if err := a.manager.Cancel(ctx, id); err != nil {
		a.audit.SessionCancelled("cli", id, "error")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	a.audit.SessionCancelled("cli", id, "ok")
	fmt.Printf("cancelled %s\n", id)
	return 0
}

func parseStatusFilter(s string) (model.Status, error) {
	switch model.Status(s) {
	case "", model.StatusDraft, model.StatusQueued, model.StatusRunning,
		model.StatusCompleted, model.StatusFailed, model.StatusCancelled:
		return model.Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func runList(args []string) int {
	fs := flag.NewFlagSet("reeldoc list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	statusFlag := fs.String("status", "", "filter by status")
	modeFlag := fs.String("mode", "", "filter by mode")
	jsonOut := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	status, err := parseStatusFilter(*statusFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	a, code := openCore(fs, g)
	if a == nil {
		return code
	}
	ctx := context.Background()
	defer a.Close(ctx)

	summaries, err := a.manager.List(ctx, model.Filter{Status: status, Mode: *modeFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summaries)
		return 0
	}

	for _, s := range summaries {
		fmt.Printf("%s  %-9s %3d%%  %-18s %s\n", s.ID, s.Status, s.Progress, s.Mode, s.Title)
	}
	return 0
}

func runActive(args []string) int {
	fs := flag.NewFlagSet("reeldoc active", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, code := openCore(fs, g)
	if a == nil {
		return code
	}
	ctx := context.Background()
	defer a.Close(ctx)

	sess, err := a.manager.GetActive(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if sess == nil {
		fmt.Fprintln(os.Stderr, "no active session")
		return 1
	}
	fmt.Println(sess.ID)
	return 0
}

func runDelete(args []string) int {
	fs := flag.NewFlagSet("reeldoc delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reeldoc delete <session-id>")
		return 2
	}

	a, code := openCore(fs, g)
	if a == nil {
		return code
	}
	ctx := context.Background()
	defer a.Close(ctx)

	id := fs.Arg(0)
	if err := a.manager.Delete(ctx, id); err != nil {
		a.audit.SessionDeleted("cli", id, "error", false)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	a.audit.SessionDeleted("cli", id, "ok", true)
	fmt.Printf("deleted %s\n", id)
	return 0
}
