// Package project discovers web/runtime projects on disk and derives the
// metadata the supervisor needs to launch them: package manager, framework,
// dev scripts and the port the dev server is expected to bind.
package project

// Project describes one discovered project directory.
type Project struct {
	Name           string            `json:"name" yaml:"name"`
	Path           string            `json:"path" yaml:"path"`
	Runtime        string            `json:"runtime" yaml:"runtime"`
	RuntimeVersion string            `json:"runtimeVersion,omitempty" yaml:"runtimeVersion,omitempty"`
	PackageManager string            `json:"packageManager" yaml:"packageManager"`
	Framework      string            `json:"framework" yaml:"framework"`
	Scripts        map[string]string `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	// ExpectedPort is the port the dev server is likely to bind, taken
	// from config files, dev scripts or the framework default. Zero when
	// unknown.
	ExpectedPort uint16 `json:"expectedPort,omitempty" yaml:"expectedPort,omitempty"`
}

// Runtime names reported for discovered projects.
const (
	RuntimeNode = "node"
	RuntimeDeno = "deno"
	RuntimeBun  = "bun"
)
