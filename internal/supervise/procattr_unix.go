//go:build !windows

package supervise

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the child in its own process group so that
// signals aimed at the supervisor's group never reach it, and vice versa.
// Tree termination deliberately does not signal the group: the reaper
// kills discovered pids individually so it can exclude the supervisor's
// ancestry.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
