// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reeldoc/reeldoc/internal/persistence/sqlite"
)

func runStorageCLI(args []string) int {
	return dispatchSub(args, printStorageUsage, map[string]func([]string) int{
		"verify": runStorageVerify,
	})
}

func printStorageUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  reeldoc storage verify [--path PATH] [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Flags:")
	_, _ = fmt.Fprintln(w, "  --path string  Path to a SQLite session database (default: configured store)")
	_, _ = fmt.Fprintln(w, "  --mode string  Verification mode: quick (default) or full")
}

func runStorageVerify(args []string) int {
	fs := flag.NewFlagSet("reeldoc storage verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)

	var path string
	var mode string
	fs.StringVar(&path, "path", "", "Path to the SQLite database file")
	fs.StringVar(&mode, "mode", "quick", "Verification mode: quick or full")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "quick" && mode != "full" {
		fmt.Fprintf(os.Stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}

	if path == "" {
		cfg, err := g.loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			return 1
		}
		if cfg.Store.Backend != "sqlite" {
			fmt.Fprintf(os.Stderr, "Error: configured store backend is %q; pass --path to verify a specific file.\n", cfg.Store.Backend)
			return 2
		}
		path = cfg.StorePath()
	}

	fmt.Fprintf(os.Stderr, "Verifying integrity of %s (mode: %s)...\n", path, mode)

	issues, err := sqlite.VerifyIntegrity(path, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verification interrupted by system error: %v\n", err)
		return 1
	}
	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "Corruption detected:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return 1
	}

	fmt.Println("Integrity verified: ok")
	return 0
}
