// Package sanitize validates commands, arguments, directories and PIDs
// before they reach a shell or an OS process operation.
//
// Validation and quoting are complementary: values checked here are still
// shell-quoted when interpolated into a command line, and free-text values
// such as working directories are never whitelisted, only quoted.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRejected marks any validation failure. Callers can match it with
// errors.Is regardless of which check fired.
var ErrRejected = errors.New("rejected")

const (
	// maxArgs caps the argument count of a single spawn request.
	maxArgs = 64
	// maxArgLen caps the byte length of a single argument.
	maxArgLen = 1024
	// maxPathLen caps working-directory paths.
	maxPathLen = 4096
	// maxPID is a generous upper bound covering pid_max on common systems.
	maxPID = 10_000_000
)

// dangerous holds shell metacharacters that are never allowed in a command
// name or argument. '=' is deliberately absent: flags like --port=4321 are
// legitimate.
const dangerous = ";&|`$()<>\n\r"

// allowedCommands is the fixed set of package-manager and runtime
// executables this tool will launch. Exact, case-sensitive matches only.
var allowedCommands = map[string]struct{}{
	"npm":  {},
	"npx":  {},
	"yarn": {},
	"pnpm": {},
	"bun":  {},
	"bunx": {},
	"node": {},
	"deno": {},
}

// Command rejects names that are empty, contain a path separator, contain
// shell metacharacters, or are not members of the fixed whitelist.
func Command(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty command", ErrRejected)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: command %q contains a path separator", ErrRejected, name)
	}
	if strings.ContainsAny(name, dangerous) {
		return fmt.Errorf("%w: command %q contains a shell metacharacter", ErrRejected, name)
	}
	if _, ok := allowedCommands[name]; !ok {
		return fmt.Errorf("%w: command %q is not an allowed executable", ErrRejected, name)
	}
	return nil
}

// Args rejects argument lists that exceed the count cap, and individual
// arguments that exceed the length cap or contain shell metacharacters.
func Args(args []string) error {
	if len(args) > maxArgs {
		return fmt.Errorf("%w: too many arguments (%d > %d)", ErrRejected, len(args), maxArgs)
	}
	for i, arg := range args {
		if len(arg) > maxArgLen {
			return fmt.Errorf("%w: argument %d exceeds %d bytes", ErrRejected, i, maxArgLen)
		}
		if strings.ContainsAny(arg, dangerous) {
			return fmt.Errorf("%w: argument %q contains a shell metacharacter", ErrRejected, arg)
		}
	}
	return nil
}

// Dir validates a working directory and resolves it through symlinks to
// its real path. The path must exist, be a directory, and contain no
// parent-directory traversal segment.
func Dir(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrRejected)
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: path contains a NUL byte", ErrRejected)
	}
	if len(path) > maxPathLen {
		return "", fmt.Errorf("%w: path exceeds %d bytes", ErrRejected, maxPathLen)
	}
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: path %q contains a traversal segment", ErrRejected, path)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: path %q does not exist", ErrRejected, path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: path %q is not a directory", ErrRejected, path)
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return filepath.Abs(resolved)
}

// PID rejects reserved and implausible process ids. PID 0 addresses the
// caller's own process group and PID 1 is init; neither is ever a valid
// supervision target.
func PID(pid int) error {
	switch {
	case pid <= 0:
		return fmt.Errorf("%w: pid %d is reserved", ErrRejected, pid)
	case pid == 1:
		return fmt.Errorf("%w: pid 1 is the init process", ErrRejected)
	case pid > maxPID:
		return fmt.Errorf("%w: pid %d is out of range", ErrRejected, pid)
	}
	return nil
}
