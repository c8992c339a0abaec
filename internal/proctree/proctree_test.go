package proctree

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeHost is an in-memory process table. Parentage is authoritative;
// children are derived from it.
type fakeHost struct {
	parents map[int]int
	dead    map[int]bool
	killErr map[int]error

	// childOverride replaces the derived children view for a pid,
	// letting tests model inconsistent snapshots.
	childOverride map[int][]int

	killed []int
}

func newFakeHost(parents map[int]int) *fakeHost {
	return &fakeHost{
		parents: parents,
		dead:    make(map[int]bool),
		killErr: make(map[int]error),
	}
}

func (f *fakeHost) Exists(pid int) bool {
	if f.dead[pid] {
		return false
	}
	if _, ok := f.parents[pid]; ok {
		return true
	}
	for _, parent := range f.parents {
		if parent == pid {
			return true
		}
	}
	return false
}

func (f *fakeHost) ParentOf(pid int) (int, error) {
	if f.dead[pid] {
		return 0, errors.New("no such process")
	}
	parent, ok := f.parents[pid]
	if !ok {
		return 0, errors.New("no such process")
	}
	return parent, nil
}

func (f *fakeHost) Children(pid int) ([]int, error) {
	if kids, ok := f.childOverride[pid]; ok {
		return kids, nil
	}
	var kids []int
	for child, parent := range f.parents {
		if parent == pid && !f.dead[child] {
			kids = append(kids, child)
		}
	}
	return kids, nil
}

func (f *fakeHost) ListeningPorts(int) ([]uint16, error)  { return nil, nil }
func (f *fakeHost) ListenersOnPort(uint16) ([]int, error) { return nil, nil }

func (f *fakeHost) Kill(pid int) error {
	if err := f.killErr[pid]; err != nil {
		return err
	}
	f.killed = append(f.killed, pid)
	f.dead[pid] = true
	return nil
}

func (f *fakeHost) wasKilled(pid int) bool {
	for _, k := range f.killed {
		if k == pid {
			return true
		}
	}
	return false
}

func TestDescendantsSingleton(t *testing.T) {
	host := newFakeHost(map[int]int{100: 1})
	got := Descendants(host, 100, DefaultKillDepth)
	if len(got) != 1 || got[0] != 100 {
		t.Fatalf("Descendants = %v, want [100]", got)
	}
}

func TestDescendantsBreadthFirstOrder(t *testing.T) {
	// 100 -> 200 -> 300 -> 400, with 201 as a second child of 100.
	host := newFakeHost(map[int]int{
		100: 1,
		200: 100,
		201: 100,
		300: 200,
		400: 300,
	})
	got := Descendants(host, 100, 4)
	if got[0] != 100 {
		t.Fatalf("root must come first, got %v", got)
	}
	pos := make(map[int]int, len(got))
	for i, pid := range got {
		if prev, dup := pos[pid]; dup {
			t.Fatalf("pid %d discovered twice (at %d and %d)", pid, prev, i)
		}
		pos[pid] = i
	}
	for _, pid := range []int{200, 201, 300, 400} {
		if _, ok := pos[pid]; !ok {
			t.Fatalf("pid %d missing from %v", pid, got)
		}
	}
	if !(pos[200] < pos[300] && pos[300] < pos[400]) {
		t.Fatalf("expected parents before children, got %v", got)
	}
}

func TestDescendantsDepthBound(t *testing.T) {
	host := newFakeHost(map[int]int{
		100: 1,
		200: 100,
		300: 200,
		400: 300,
		500: 400,
	})
	got := Descendants(host, 100, 2)
	if len(got) != 3 {
		t.Fatalf("depth 2 walk = %v, want [100 200 300]", got)
	}
}

func TestAncestorsStopsAtInit(t *testing.T) {
	host := newFakeHost(map[int]int{
		50: 40,
		40: 30,
		30: 1,
		1:  0,
	})
	got := Ancestors(host, 50)
	for _, want := range []int{40, 30} {
		if _, ok := got[want]; !ok {
			t.Fatalf("ancestor %d missing from %v", want, got)
		}
	}
	if _, ok := got[1]; ok {
		t.Fatal("init must not be part of the ancestor set")
	}
	if _, ok := got[50]; ok {
		t.Fatal("the starting pid is not its own ancestor")
	}
}

func TestAncestorsBreaksCycles(t *testing.T) {
	host := newFakeHost(map[int]int{
		50: 40,
		40: 30,
		30: 40, // cycle
	})
	done := make(chan map[int]struct{}, 1)
	go func() { done <- Ancestors(host, 50) }()
	select {
	case got := <-done:
		if _, ok := got[40]; !ok {
			t.Fatalf("ancestors %v missing 40", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Ancestors did not terminate on a parent cycle")
	}
}

func TestKillTreeChildrenBeforeParents(t *testing.T) {
	host := newFakeHost(map[int]int{
		100: 1,
		200: 100,
		300: 200,
	})
	r := NewReaper(host, 0, time.Millisecond)
	r.self = 99999

	if err := r.KillTree(100); err != nil {
		t.Fatalf("KillTree: %v", err)
	}
	if len(host.killed) != 3 {
		t.Fatalf("killed %v, want all three", host.killed)
	}
	if host.killed[0] != 300 || host.killed[2] != 100 {
		t.Fatalf("kill order %v, want deepest first, root last", host.killed)
	}
}

func TestKillTreeMissingRoot(t *testing.T) {
	host := newFakeHost(map[int]int{100: 1})
	r := NewReaper(host, 0, time.Millisecond)
	r.self = 99999

	err := r.KillTree(4242)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("KillTree on missing pid = %v, want ErrNotFound", err)
	}
}

func TestKillTreeNeverTouchesSupervisorOrAncestors(t *testing.T) {
	// A noisy snapshot reports the supervisor's ancestor (800) as a child
	// of the kill target, which then drags the supervisor (900) itself
	// into the walk. Neither may be signalled.
	host := newFakeHost(map[int]int{
		100: 1,
		200: 100,
		900: 800, // supervisor
		800: 1,
	})
	host.childOverride = map[int][]int{100: {200, 800}}

	r := NewReaper(host, 0, time.Millisecond)
	r.self = 900

	if err := r.KillTree(100); err != nil {
		t.Fatalf("KillTree: %v", err)
	}
	for _, pid := range []int{900, 800} {
		if host.wasKilled(pid) {
			t.Fatalf("protected pid %d was killed (killed=%v)", pid, host.killed)
		}
	}
	for _, pid := range []int{100, 200} {
		if !host.wasKilled(pid) {
			t.Fatalf("target pid %d should have been killed (killed=%v)", pid, host.killed)
		}
	}
}

func TestKillTreeOnSupervisorItselfIsANoOp(t *testing.T) {
	host := newFakeHost(map[int]int{
		900: 800,
		800: 1,
	})
	r := NewReaper(host, 0, time.Millisecond)
	r.self = 900

	if err := r.KillTree(900); err != nil {
		t.Fatalf("KillTree(self): %v", err)
	}
	if len(host.killed) != 0 {
		t.Fatalf("killed %v, want nothing", host.killed)
	}
	if !host.Exists(900) {
		t.Fatal("supervisor must remain alive")
	}
}

func TestKillTreeOnAncestorIsANoOp(t *testing.T) {
	host := newFakeHost(map[int]int{
		900: 800,
		800: 1,
	})
	r := NewReaper(host, 0, time.Millisecond)
	r.self = 900

	if err := r.KillTree(800); err != nil {
		t.Fatalf("KillTree(ancestor): %v", err)
	}
	if host.wasKilled(800) {
		t.Fatal("ancestor must never be killed")
	}
}

func TestKillTreeIgnoresDescendantFailures(t *testing.T) {
	host := newFakeHost(map[int]int{
		100: 1,
		200: 100,
	})
	host.killErr[200] = fmt.Errorf("operation not permitted")

	r := NewReaper(host, 0, time.Millisecond)
	r.self = 99999

	if err := r.KillTree(100); err != nil {
		t.Fatalf("KillTree: %v", err)
	}
	if !host.wasKilled(100) {
		t.Fatal("root should still be killed after a descendant failure")
	}
}

func TestKillTreeRootFailureSurfaces(t *testing.T) {
	host := newFakeHost(map[int]int{100: 1})
	host.killErr[100] = fmt.Errorf("operation not permitted")

	r := NewReaper(host, 0, time.Millisecond)
	r.self = 99999

	err := r.KillTree(100)
	if !errors.Is(err, ErrKillFailed) {
		t.Fatalf("KillTree = %v, want ErrKillFailed", err)
	}
}
