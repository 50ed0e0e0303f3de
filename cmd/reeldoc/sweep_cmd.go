// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/reeldoc/reeldoc/internal/session/manager"
)

// runSweep performs one maintenance pass: restore persisted sessions, fail
// running ones whose owner died, evict sessions past the retention window.
// Intended for cron or a systemd timer next to a long-lived submit workflow.
func runSweep(args []string) int {
	fs := flag.NewFlagSet("reeldoc sweep", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Unexpected argument: %s\n", fs.Arg(0))
		return 2
	}

	ctx := context.Background()
	a, code := openCore(fs, g)
	if a == nil {
		return code
	}
	defer a.Close(ctx)

	restored, reaped, err := a.manager.Restore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore failed: %v\n", err)
		return 1
	}

	sw := manager.Sweeper{Manager: a.manager, Conf: a.sweeperConfig(), Audit: a.audit}
	sw.SweepOnce(ctx)

	fmt.Printf("sweep complete: %d restored, %d reaped as orphaned\n", restored, reaped)
	return 0
}
