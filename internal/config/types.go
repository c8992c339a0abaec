// Package config loads the portside manifest.
package config

import (
	"time"
)

// Config is the root of the portside.yaml manifest.
type Config struct {
	// Workspaces are the directories scanned for projects. Environment
	// variables in entries are expanded at load time.
	Workspaces []string `yaml:"workspaces"`

	API       API       `yaml:"api"`
	Events    Events    `yaml:"events"`
	Supervise Supervise `yaml:"supervise"`

	// EnvFile points at a dotenv file whose variables are appended to
	// the environment of every spawned process. Relative to the
	// manifest's directory.
	EnvFile string `yaml:"envFile"`

	// Env holds inline KEY: VALUE pairs merged over the EnvFile
	// variables.
	Env map[string]string `yaml:"env"`

	// SpawnEnv is the merged environment for spawned processes,
	// populated at load time.
	SpawnEnv map[string]string `yaml:"-"`
}

// API configures the control server.
type API struct {
	Addr string `yaml:"addr"`
}

// Events configures the fan-in channel between supervised processes and
// consumers.
type Events struct {
	Buffer int `yaml:"buffer"`
}

// Supervise tunes tree walking, reaping and port probing.
type Supervise struct {
	// KillDepth is the number of descendant levels walked before a kill.
	KillDepth int `yaml:"killDepth"`
	// ProbeDepth is the shallower walk used when probing for ports.
	ProbeDepth int `yaml:"probeDepth"`
	// Grace is the pause between the kill pass and root verification.
	Grace time.Duration `yaml:"grace"`
	// WellKnownPorts overrides the built-in last-resort port scan list.
	WellKnownPorts []uint16 `yaml:"wellKnownPorts"`
}

// Default returns the configuration used when no manifest exists.
func Default() *Config {
	return &Config{
		API:    API{Addr: "127.0.0.1:7663"},
		Events: Events{Buffer: 256},
		Supervise: Supervise{
			KillDepth:  4,
			ProbeDepth: 3,
			Grace:      100 * time.Millisecond,
		},
		SpawnEnv: map[string]string{},
	}
}
