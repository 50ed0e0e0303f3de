// SPDX-License-Identifier: MIT

// Command reeldoc turns screen recordings into documentation: probe, proxy,
// transcribe, select the relevant moments, extract keyframes and generate a
// document through an LLM backend. Sessions and their artifacts live under
// the data directory; every subcommand operates on that state.
package main

import (
	"fmt"
	"io"
	"os"
)

var (
	version   = "v1.2.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches to the subcommands. Kept separate from main so tests can
// exercise the exit-code mapping.
func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		return 0
	case "-version", "--version", "version":
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	case "process":
		return runProcess(args[1:])
	case "submit":
		return runSubmit(args[1:])
	case "run":
		return runRun(args[1:])
	case "status":
		return runStatus(args[1:])
	case "result":
		return runResult(args[1:])
	case "cancel":
		return runCancel(args[1:])
	case "list":
		return runList(args[1:])
	case "active":
		return runActive(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "prompts":
		return runPromptsCLI(args[1:])
	case "config":
		return runConfigCLI(args[1:])
	case "storage":
		return runStorageCLI(args[1:])
	case "sweep":
		return runSweep(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage(os.Stderr)
		return 2
	}
}

// dispatchSub routes a command group (config, prompts, storage). Bare
// invocations and help print usage; unknown names list it to stderr.
func dispatchSub(args []string, usage func(io.Writer), subs map[string]func([]string) int) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(os.Stdout)
		return 0
	}
	sub, ok := subs[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		usage(os.Stderr)
		return 2
	}
	return sub(args[1:])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: reeldoc <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  process <video>    Submit a video and run it to completion")
	fmt.Fprintln(w, "  submit <video>     Create and queue a session without running it")
	fmt.Fprintln(w, "  run <session-id>   Run a previously submitted session")
	fmt.Fprintln(w, "  status <id>        Show session status")
	fmt.Fprintln(w, "  result <id>        Show the artifact manifest and document path")
	fmt.Fprintln(w, "  cancel <id>        Request cancellation of a session")
	fmt.Fprintln(w, "  list               List sessions")
	fmt.Fprintln(w, "  active             Show the most recently active non-terminal session")
	fmt.Fprintln(w, "  delete <id>        Remove a session and its artifacts")
	fmt.Fprintln(w, "  prompts            List or show prompt records")
	fmt.Fprintln(w, "  config             Validate or dump configuration")
	fmt.Fprintln(w, "  storage            Verify the session database")
	fmt.Fprintln(w, "  sweep              Run one housekeeping pass")
	fmt.Fprintln(w, "  version            Print the version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Global flags (per command): --config FILE, --data DIR, --log-level LEVEL")
}
