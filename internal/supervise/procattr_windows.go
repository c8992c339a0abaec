//go:build windows

package supervise

import "os/exec"

// Windows is outside the supported target set; the launcher compiles but
// offers no process-group isolation there.
func configureSysProcAttr(cmd *exec.Cmd) {}
