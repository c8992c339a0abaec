package proctree

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/portside/portside/internal/inspect"
)

var (
	// ErrNotFound reports that the requested root process does not exist.
	ErrNotFound = errors.New("process not found")
	// ErrKillFailed reports that the root of a kill request could not be
	// terminated. Failures on descendants are never surfaced.
	ErrKillFailed = errors.New("kill failed")
)

// DefaultGrace is the fixed pause between the kill pass and the root
// re-check.
const DefaultGrace = 100 * time.Millisecond

// Reaper terminates process trees bottom-up while guaranteeing that the
// supervising process and its ancestors are never signalled.
type Reaper struct {
	host  inspect.Host
	depth int
	grace time.Duration

	// self overrides os.Getpid in tests.
	self int
}

// NewReaper returns a Reaper walking depth levels and pausing grace before
// the final root verification. Non-positive values select the defaults.
func NewReaper(host inspect.Host, depth int, grace time.Duration) *Reaper {
	if depth <= 0 {
		depth = DefaultKillDepth
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Reaper{host: host, depth: depth, grace: grace}
}

func (r *Reaper) selfPID() int {
	if r.self != 0 {
		return r.self
	}
	return os.Getpid()
}

// KillTree terminates root and every discovered descendant, deepest first.
//
// The supervisor's own pid and its ancestor chain are hard-skipped: they
// are never signalled no matter how they entered the discovered tree.
// Individual kill failures on descendants are ignored; only a failure to
// terminate root itself is an error. After a short grace period the root
// is re-checked and given one final forced kill, with no further
// escalation.
func (r *Reaper) KillTree(root int) error {
	if !r.host.Exists(root) {
		return fmt.Errorf("%w: pid %d", ErrNotFound, root)
	}

	tree := Descendants(r.host, root, r.depth)

	self := r.selfPID()
	ancestors := Ancestors(r.host, self)

	protected := func(pid int) bool {
		if pid == self {
			return true
		}
		_, ok := ancestors[pid]
		return ok
	}

	// Children before parents: killing a parent first would orphan its
	// children onto init and out of reach.
	for i := len(tree) - 1; i >= 0; i-- {
		pid := tree[i]
		if protected(pid) {
			continue
		}
		if err := r.host.Kill(pid); err != nil && pid == root {
			return fmt.Errorf("%w: pid %d: %v", ErrKillFailed, root, err)
		}
	}

	time.Sleep(r.grace)

	// Skip verification when the root itself was protected, matching the
	// skip above.
	if protected(root) {
		return nil
	}
	if r.host.Exists(root) {
		if err := r.host.Kill(root); err != nil {
			return fmt.Errorf("%w: pid %d survived termination: %v", ErrKillFailed, root, err)
		}
	}
	return nil
}
