package project

import (
	"os/exec"
	"strings"
	"sync"
)

// Versions caches detected runtime versions. A lookup shells out to the
// runtime's --version command at most once per distinct name for the life
// of the cache; concurrent lookups of the same name may both probe, and
// the idempotent overwrite is harmless.
//
// The cache is owned and injected by the caller rather than living in
// package state, so tests can hand in an empty one.
type Versions struct {
	mu    sync.Mutex
	known map[string]string

	// probe is swappable in tests.
	probe func(runtime string) string
}

// NewVersions returns an empty cache probing the real runtimes.
func NewVersions() *Versions {
	return &Versions{known: make(map[string]string), probe: probeVersion}
}

// Lookup returns the version string for a runtime name, probing and
// caching on first use. Unknown runtimes and probe failures yield "".
func (v *Versions) Lookup(runtime string) string {
	v.mu.Lock()
	if version, ok := v.known[runtime]; ok {
		v.mu.Unlock()
		return version
	}
	v.mu.Unlock()

	// Probe outside the lock; --version calls can be slow.
	version := v.probe(runtime)

	v.mu.Lock()
	v.known[runtime] = version
	v.mu.Unlock()
	return version
}

func probeVersion(runtime string) string {
	switch runtime {
	case RuntimeNode:
		out, err := exec.Command("node", "--version").Output()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(out))
	case RuntimeDeno:
		// First line is "deno x.y.z (...)".
		out, err := exec.Command("deno", "--version").Output()
		if err != nil {
			return ""
		}
		line, _, _ := strings.Cut(string(out), "\n")
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return ""
		}
		return fields[1]
	case RuntimeBun:
		out, err := exec.Command("bun", "--version").Output()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(out))
	default:
		return ""
	}
}
