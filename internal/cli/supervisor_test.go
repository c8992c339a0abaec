package cli

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/portside/portside/internal/api"
	"github.com/portside/portside/internal/config"
	"github.com/portside/portside/internal/proctree"
	"github.com/portside/portside/internal/sanitize"
	"github.com/portside/portside/internal/supervise"
)

// fakeHost is a canned process table for backend tests.
type fakeHost struct {
	alive    map[int]bool
	parents  map[int]int
	children map[int][]int
	ports    map[int][]uint16
	byPort   map[uint16][]int
	killed   []int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		alive:    make(map[int]bool),
		parents:  make(map[int]int),
		children: make(map[int][]int),
		ports:    make(map[int][]uint16),
		byPort:   make(map[uint16][]int),
	}
}

func (h *fakeHost) Exists(pid int) bool { return h.alive[pid] }

func (h *fakeHost) ParentOf(pid int) (int, error) {
	parent, ok := h.parents[pid]
	if !ok {
		return 0, fmt.Errorf("no parent for %d", pid)
	}
	return parent, nil
}

func (h *fakeHost) Children(pid int) ([]int, error) { return h.children[pid], nil }

func (h *fakeHost) ListeningPorts(pid int) ([]uint16, error) { return h.ports[pid], nil }

func (h *fakeHost) ListenersOnPort(port uint16) ([]int, error) { return h.byPort[port], nil }

func (h *fakeHost) Kill(pid int) error {
	h.killed = append(h.killed, pid)
	h.alive[pid] = false
	return nil
}

func newTestSupervisor(t *testing.T, host *fakeHost) *supervisor {
	t.Helper()
	cfg := config.Default()
	sup := newSupervisorWithHost(cfg, host)
	t.Cleanup(sup.shutdown)
	return sup
}

func TestSpawnRejectionIsSynchronous(t *testing.T) {
	sup := newTestSupervisor(t, newFakeHost())

	_, err := sup.spawn(supervise.Request{Command: "rm", Args: []string{"-rf", "/"}, Dir: t.TempDir()})
	if !errors.Is(err, sanitize.ErrRejected) {
		t.Fatalf("spawn = %v, want ErrRejected", err)
	}

	status := sup.status()
	if len(status.Processes) != 0 {
		t.Fatalf("rejected spawn registered a process: %+v", status.Processes)
	}
}

func TestKillTreeNotFound(t *testing.T) {
	sup := newTestSupervisor(t, newFakeHost())

	err := sup.killTree(4242)
	if !errors.Is(err, proctree.ErrNotFound) {
		t.Fatalf("killTree = %v, want ErrNotFound", err)
	}
}

func TestKillTreeReapsAndMarksRegistry(t *testing.T) {
	host := newFakeHost()
	host.alive[100] = true
	host.alive[200] = true
	host.children[100] = []int{200}

	sup := newTestSupervisor(t, host)
	sup.mu.Lock()
	sup.procs["tok-1"] = &api.ProcessReport{Token: "tok-1", PID: 100, Running: true}
	sup.mu.Unlock()

	if err := sup.killTree(100); err != nil {
		t.Fatalf("killTree: %v", err)
	}
	if len(host.killed) == 0 {
		t.Fatal("expected kills against the host")
	}

	status := sup.status()
	if status.Processes["tok-1"].Running {
		t.Fatal("expected registry entry marked stopped after reap")
	}
}

func TestFindPortUpdatesRegistry(t *testing.T) {
	host := newFakeHost()
	host.alive[100] = true
	host.ports[100] = []uint16{4321}

	sup := newTestSupervisor(t, host)
	sup.mu.Lock()
	sup.procs["tok-1"] = &api.ProcessReport{Token: "tok-1", PID: 100, Running: true}
	sup.mu.Unlock()

	result, err := sup.findPort(100)
	if err != nil {
		t.Fatalf("findPort: %v", err)
	}
	if result.Port != 4321 {
		t.Fatalf("findPort = %d, want 4321", result.Port)
	}

	status := sup.status()
	if status.Processes["tok-1"].Port != 4321 {
		t.Fatal("expected probed port recorded on the registry entry")
	}
}

func TestFindPortMissIsNotAnError(t *testing.T) {
	sup := newTestSupervisor(t, newFakeHost())

	result, err := sup.findPort(100)
	if err != nil {
		t.Fatalf("findPort: %v", err)
	}
	if result.Port != 0 {
		t.Fatalf("findPort = %d, want 0", result.Port)
	}
}

func TestPumpForwardsEventsToSubscribers(t *testing.T) {
	sup := newTestSupervisor(t, newFakeHost())

	events, release := sup.subscribe(8)
	defer release()

	sup.source <- supervise.Event{
		Timestamp: time.Now(),
		Token:     "tok-1",
		PID:       7,
		Type:      supervise.EventStdoutLine,
		Message:   "ready",
	}

	select {
	case evt := <-events:
		if evt.Message != "ready" || evt.Token != "tok-1" {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for forwarded event")
	}
}

func TestExitBeforeRegistrationIsRemembered(t *testing.T) {
	sup := newTestSupervisor(t, newFakeHost())

	sup.apply(supervise.Event{Token: "tok-1", PID: 7, Type: supervise.EventExited})

	sup.mu.Lock()
	_, remembered := sup.exited["tok-1"]
	sup.mu.Unlock()
	if !remembered {
		t.Fatal("expected early exit to be remembered for late registration")
	}
}

func TestShutdownClosesSubscribers(t *testing.T) {
	sup := newSupervisorWithHost(config.Default(), newFakeHost())

	events, release := sup.subscribe(1)
	defer release()

	sup.shutdown()

	select {
	case _, ok := <-events:
		if ok {
			// A buffered event may arrive first; the close follows.
			if _, ok := <-events; ok {
				t.Fatal("expected subscriber channel to close on shutdown")
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscriber close")
	}
}
