// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reeldoc/reeldoc/internal/config"
)

// globalOpts are the flags every subcommand accepts.
type globalOpts struct {
	configPath string
	dataDir    string
	logLevel   string
}

func addGlobalFlags(fs *flag.FlagSet) *globalOpts {
	g := &globalOpts{}
	fs.StringVar(&g.configPath, "config", "", "path to config file (YAML)")
	fs.StringVar(&g.dataDir, "data", "", "data directory override")
	fs.StringVar(&g.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	return g
}

// resolveDefaultConfigPath returns ${REELDOC_DATA}/config.yaml when it
// exists, so a saved config keeps applying without --config.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv("REELDOC_DATA"))
	if dataDir == "" {
		dataDir = "./data"
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

// loadConfig resolves the effective configuration for one invocation:
// defaults, then the config file, then environment, then the command line.
func (g *globalOpts) loadConfig() (config.Config, error) {
	path := strings.TrimSpace(g.configPath)
	if path == "" {
		path = resolveDefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if dir := strings.TrimSpace(g.dataDir); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return config.Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = abs
	}
	if lvl := strings.TrimSpace(g.logLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
