package inspect

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ExecHost implements Host by invoking the standard POSIX inspection
// utilities and parsing their output.
type ExecHost struct {
	// run executes a command and returns its combined stdout. Swappable
	// so parser behaviour can be exercised without the real utilities.
	run func(name string, args ...string) ([]byte, error)
}

// NewExecHost returns a Host backed by ps, pgrep, lsof and kill.
func NewExecHost() *ExecHost {
	return &ExecHost{run: func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).Output()
	}}
}

func (h *ExecHost) Exists(pid int) bool {
	// ps exits non-zero when the pid is unknown.
	_, err := h.run("ps", "-p", strconv.Itoa(pid))
	return err == nil
}

func (h *ExecHost) ParentOf(pid int) (int, error) {
	out, err := h.run("ps", "-o", "ppid=", "-p", strconv.Itoa(pid))
	if err != nil {
		return 0, fmt.Errorf("ps ppid of %d: %w", pid, err)
	}
	ppid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("parse ppid of %d: %w", pid, err)
	}
	return ppid, nil
}

func (h *ExecHost) Children(pid int) ([]int, error) {
	// pgrep exits 1 when there are no matches; that is an empty result,
	// not a failure.
	out, err := h.run("pgrep", "-P", strconv.Itoa(pid))
	if err != nil {
		return nil, nil
	}
	return parsePIDLines(string(out)), nil
}

func (h *ExecHost) ListeningPorts(pid int) ([]uint16, error) {
	out, err := h.run("lsof", "-Pan", "-p", strconv.Itoa(pid), "-iTCP", "-sTCP:LISTEN")
	if err != nil {
		// lsof exits non-zero when no files match.
		return nil, nil
	}
	return parseLsofListeners(string(out)), nil
}

func (h *ExecHost) ListenersOnPort(port uint16) ([]int, error) {
	out, err := h.run("lsof", "-ti", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil
	}
	return parsePIDLines(string(out)), nil
}

func (h *ExecHost) Kill(pid int) error {
	if _, err := h.run("kill", "-9", strconv.Itoa(pid)); err != nil {
		return fmt.Errorf("kill %d: %w", pid, err)
	}
	return nil
}

// parsePIDLines extracts one positive pid per line, skipping anything that
// does not parse.
func parsePIDLines(out string) []int {
	var pids []int
	for _, line := range strings.Split(out, "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// parseLsofListeners pulls listening ports out of lsof's tabular output.
// Expected row shape:
//
//	COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME
//	node    123 u    30u IPv4 0x..  0t0      TCP  *:4321 (LISTEN)
//
// The port follows the last ':' of the NAME column. Short or malformed
// rows are skipped; lsof output drifts between platforms and a bad line
// must never take down a probe.
func parseLsofListeners(out string) []uint16 {
	var ports []uint16
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i == 0 {
			// Header row.
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}
		name := fields[8]
		idx := strings.LastIndex(name, ":")
		if idx < 0 || idx == len(name)-1 {
			continue
		}
		port, err := strconv.ParseUint(name[idx+1:], 10, 16)
		if err != nil || port == 0 {
			continue
		}
		ports = append(ports, uint16(port))
	}
	return ports
}
