package inspect

import (
	"errors"
	"os"
	"strconv"
	"testing"
)

// scriptedHost returns an ExecHost whose commands are answered from a
// canned table keyed by the joined command line.
func scriptedHost(responses map[string]string) *ExecHost {
	return &ExecHost{run: func(name string, args ...string) ([]byte, error) {
		key := name
		for _, a := range args {
			key += " " + a
		}
		out, ok := responses[key]
		if !ok {
			return nil, errors.New("exit status 1")
		}
		return []byte(out), nil
	}}
}

func TestExistsAgainstRealPS(t *testing.T) {
	h := NewExecHost()
	if !h.Exists(os.Getpid()) {
		t.Fatalf("expected own pid %d to exist", os.Getpid())
	}
	if h.Exists(9_999_999) {
		t.Fatal("expected absurd pid to be reported missing")
	}
}

func TestParentOfAgainstRealPS(t *testing.T) {
	h := NewExecHost()
	ppid, err := h.ParentOf(os.Getpid())
	if err != nil {
		t.Fatalf("ParentOf: %v", err)
	}
	if ppid != os.Getppid() {
		t.Fatalf("ParentOf = %d, want %d", ppid, os.Getppid())
	}
}

func TestChildrenParsesPGrepOutput(t *testing.T) {
	h := scriptedHost(map[string]string{
		"pgrep -P 100": "101\n102\n\nnot-a-pid\n103\n",
	})
	got, err := h.Children(100)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	want := []int{101, 102, 103}
	if len(got) != len(want) {
		t.Fatalf("Children = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Children = %v, want %v", got, want)
		}
	}
}

func TestChildrenNoMatchesIsEmpty(t *testing.T) {
	h := scriptedHost(nil)
	got, err := h.Children(100)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Children = %v, want empty", got)
	}
}

func TestListeningPortsParsesLsofOutput(t *testing.T) {
	out := "COMMAND  PID USER   FD   TYPE             DEVICE SIZE/OFF NODE NAME\n" +
		"node    4242 dev   30u  IPv4 0x1234567890      0t0  TCP *:5173 (LISTEN)\n" +
		"node    4242 dev   31u  IPv6 0x1234567891      0t0  TCP [::1]:5173 (LISTEN)\n" +
		"short line\n" +
		"node    4242 dev   32u  IPv4 0x1234567892      0t0  TCP localhost:noport (LISTEN)\n"
	h := scriptedHost(map[string]string{
		"lsof -Pan -p 4242 -iTCP -sTCP:LISTEN": out,
	})
	ports, err := h.ListeningPorts(4242)
	if err != nil {
		t.Fatalf("ListeningPorts: %v", err)
	}
	if len(ports) != 2 || ports[0] != 5173 || ports[1] != 5173 {
		t.Fatalf("ListeningPorts = %v, want [5173 5173]", ports)
	}
}

func TestListeningPortsToleratesGarbage(t *testing.T) {
	h := scriptedHost(map[string]string{
		"lsof -Pan -p 7 -iTCP -sTCP:LISTEN": "\x00\xff garbage\nno columns here\n",
	})
	ports, err := h.ListeningPorts(7)
	if err != nil {
		t.Fatalf("ListeningPorts: %v", err)
	}
	if len(ports) != 0 {
		t.Fatalf("ListeningPorts = %v, want none", ports)
	}
}

func TestListenersOnPort(t *testing.T) {
	h := scriptedHost(map[string]string{
		"lsof -ti :3000": "300\n301\n",
	})
	pids, err := h.ListenersOnPort(3000)
	if err != nil {
		t.Fatalf("ListenersOnPort: %v", err)
	}
	if len(pids) != 2 || pids[0] != 300 || pids[1] != 301 {
		t.Fatalf("ListenersOnPort = %v, want [300 301]", pids)
	}
}

func TestParsePIDLinesRejectsNonPositive(t *testing.T) {
	got := parsePIDLines("0\n-5\n12\n")
	if len(got) != 1 || got[0] != 12 {
		t.Fatalf("parsePIDLines = %v, want [12]", got)
	}
}

func TestParseLsofListenersPortRange(t *testing.T) {
	// 65536 overflows uint16 and must be skipped, 0 is never a listener.
	out := "HEADER\n" +
		"a 1 u 1u IPv4 d 0t0 TCP *:65536 (LISTEN)\n" +
		"a 1 u 1u IPv4 d 0t0 TCP *:0 (LISTEN)\n" +
		"a 1 u 1u IPv4 d 0t0 TCP *:" + strconv.Itoa(65535) + " (LISTEN)\n"
	ports := parseLsofListeners(out)
	if len(ports) != 1 || ports[0] != 65535 {
		t.Fatalf("parseLsofListeners = %v, want [65535]", ports)
	}
}
