// Package api defines the contract between the control surfaces (HTTP
// server, CLI, TUI) and the supervision backend.
package api

import (
	stdcontext "context"
	"time"

	"github.com/portside/portside/internal/project"
	"github.com/portside/portside/internal/supervise"
)

// SpawnRequest mirrors supervise.Request for API consumers.
type SpawnRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Dir     string   `json:"dir"`
	Token   string   `json:"token"`
}

// SpawnResult reports a successful launch.
type SpawnResult struct {
	PID   int    `json:"pid"`
	Token string `json:"token"`
}

// PortResult reports the outcome of a port probe. Port 0 means no
// listener could be attributed to the process tree.
type PortResult struct {
	PID  int    `json:"pid"`
	Port uint16 `json:"port"`
}

// ProcessReport describes one supervised process.
type ProcessReport struct {
	Token     string    `json:"token"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	Dir       string    `json:"dir"`
	StartedAt time.Time `json:"started_at"`
	Running   bool      `json:"running"`
	Port      uint16    `json:"port,omitempty"`
}

// StatusReport aggregates daemon-wide status.
type StatusReport struct {
	Version     string                   `json:"version"`
	GeneratedAt time.Time                `json:"generated_at"`
	Processes   map[string]ProcessReport `json:"processes"`
}

// Controller exposes the supervision operations required by control
// servers.
type Controller interface {
	Spawn(stdcontext.Context, SpawnRequest) (*SpawnResult, error)
	KillTree(stdcontext.Context, int) error
	FindPort(stdcontext.Context, int) (*PortResult, error)
	Projects(stdcontext.Context) ([]project.Project, error)
	Status(stdcontext.Context) (*StatusReport, error)

	// Subscribe registers an event consumer. The returned cancel
	// function detaches it; after cancel the channel is closed.
	Subscribe() (<-chan supervise.Event, func())
}
