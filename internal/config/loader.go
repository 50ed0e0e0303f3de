// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader resolves the effective configuration. Precedence, lowest to highest:
// built-in defaults, config file, environment variables. The merged result is
// validated as a whole so an override cannot sneak past the rules.
type Loader struct {
	configPath string
}

// NewLoader creates a configuration loader. configPath may be empty, in
// which case only defaults and environment variables apply.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load resolves the final configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := l.mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	// DataDir must be absolute so per-session path confinement has a stable root.
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Load is a convenience wrapper around NewLoader(path).Load().
func Load(path string) (Config, error) {
	return NewLoader(path).Load()
}

// loadFile reads and strictly parses one YAML config file.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("unsupported config format %q (only YAML supported)", filepath.Ext(path))
	}

	f, err := os.Open(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseFileConfig(f)
}

// parseFileConfig decodes a single YAML document into FileConfig. Unknown
// keys and trailing documents are errors so a typo cannot silently turn into
// a default.
func parseFileConfig(r io.Reader) (*FileConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fileCfg FileConfig
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty file is a valid "all defaults" config.
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}
