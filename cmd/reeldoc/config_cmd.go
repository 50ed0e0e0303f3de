// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reeldoc/reeldoc/internal/config"
)

func runConfigCLI(args []string) int {
	return dispatchSub(args, printConfigUsage, map[string]func([]string) int{
		"validate": runConfigValidate,
		"dump":     runConfigDump,
	})
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  reeldoc config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  reeldoc config dump [--file|-f config.yaml] [--format yaml|json]")
}

func configFileArg(fs *flag.FlagSet) *string {
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	return &file
}

func runConfigValidate(args []string) int {
	fs := flag.NewFlagSet("reeldoc config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := configFileArg(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(*file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}

	if _, err := config.Load(configPath); err != nil {
		if configPath != "" {
			fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		} else {
			fmt.Fprintf(os.Stderr, "Configuration error:\n  %v\n", err)
		}
		return 1
	}

	if configPath != "" {
		fmt.Printf("✓ %s is valid\n", configPath)
	} else {
		fmt.Println("✓ effective configuration (defaults + environment) is valid")
	}
	return 0
}

func runConfigDump(args []string) int {
	fs := flag.NewFlagSet("reeldoc config dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := configFileArg(fs)
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	outFormat := strings.ToLower(strings.TrimSpace(*format))
	switch outFormat {
	case "yaml", "yml", "json":
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s (use yaml or json)\n", *format)
		return 2
	}

	configPath := strings.TrimSpace(*file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error:\n  %v\n", err)
		return 1
	}

	fileCfg := config.FileFromConfig(cfg)
	redactFileConfigSecrets(&fileCfg)

	switch outFormat {
	case "yaml", "yml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}
}

func redactFileConfigSecrets(cfg *config.FileConfig) {
	redacted := "***"
	if cfg.LLM != nil && cfg.LLM.APIKey != nil && *cfg.LLM.APIKey != "" {
		cfg.LLM.APIKey = &redacted
	}
	if cfg.STT != nil && cfg.STT.RemoteAPIKey != nil && *cfg.STT.RemoteAPIKey != "" {
		cfg.STT.RemoteAPIKey = &redacted
	}
	if cfg.Cache != nil && cfg.Cache.RedisPassword != nil && *cfg.Cache.RedisPassword != "" {
		cfg.Cache.RedisPassword = &redacted
	}
}
