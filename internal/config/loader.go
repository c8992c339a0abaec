package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a manifest from path. A missing file yields the defaults; a
// present but malformed file is an error. Unknown fields are rejected so
// typos surface instead of silently doing nothing.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return Default(), nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}
	if doc != nil {
		if err := validateAgainstSchema(doc); err != nil {
			return nil, fmt.Errorf("%s: %w", absPath, err)
		}
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	for i, ws := range cfg.Workspaces {
		cfg.Workspaces[i] = os.ExpandEnv(ws)
	}

	if err := cfg.loadSpawnEnv(filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return cfg, nil
}

// loadSpawnEnv merges the dotenv file (if any) with inline env entries,
// inline values winning.
func (c *Config) loadSpawnEnv(baseDir string) error {
	merged := map[string]string{}

	if c.EnvFile != "" {
		path := os.ExpandEnv(c.EnvFile)
		if !filepath.IsAbs(path) {
			path = filepath.Clean(filepath.Join(baseDir, path))
		}
		c.EnvFile = path

		fileEnv, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("envFile %s: %w", path, err)
		}
		for k, v := range fileEnv {
			merged[k] = v
		}
	}
	for k, v := range c.Env {
		merged[k] = v
	}
	c.SpawnEnv = merged
	return nil
}

func (c *Config) validate() error {
	if c.Events.Buffer < 0 {
		return fmt.Errorf("events.buffer must not be negative")
	}
	if c.Supervise.KillDepth < 0 {
		return fmt.Errorf("supervise.killDepth must not be negative")
	}
	if c.Supervise.ProbeDepth < 0 {
		return fmt.Errorf("supervise.probeDepth must not be negative")
	}
	if c.Supervise.Grace < 0 {
		return fmt.Errorf("supervise.grace must not be negative")
	}
	for _, port := range c.Supervise.WellKnownPorts {
		if port == 0 {
			return fmt.Errorf("supervise.wellKnownPorts must not contain 0")
		}
	}
	return nil
}
