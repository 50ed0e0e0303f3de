// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

func runPromptsCLI(args []string) int {
	return dispatchSub(args, printPromptsUsage, map[string]func([]string) int{
		"list": runPromptsList,
		"show": runPromptsShow,
	})
}

func printPromptsUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  reeldoc prompts list")
	fmt.Fprintln(w, "  reeldoc prompts show <id>")
}

func runPromptsList(args []string) int {
	fs := flag.NewFlagSet("reeldoc prompts list", flag.ContinueOnError)
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

	for _, rec := range a.registry.List() {
		fmt.Printf("%-20s %-8s %-9s %s\n", rec.ID, rec.ModelPreference, rec.OutputFormat, rec.DisplayName)
	}
	return 0
}

func runPromptsShow(args []string) int {
	fs := flag.NewFlagSet("reeldoc prompts show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: reeldoc prompts show <id>")
		return 2
	}

	a, code := openCore(fs, g)
	if a == nil {
		return code
	}
	ctx := context.Background()
	defer a.Close(ctx)

	rec, err := a.registry.Get(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	_ = enc.Close()
	return 0
}
