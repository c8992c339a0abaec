// Package shellenv resolves which interactive shell should launch a command
// and provides POSIX-safe quoting for the command line handed to it.
//
// Dev servers are started through the user's login shell so that PATH
// mutations applied by version managers (fnm, nvm, volta, asdf) are visible
// to the spawned process. Resolution is pure data construction; no shell is
// contacted until a spawn is attempted.
package shellenv

import (
	"os"
	"path/filepath"
	"runtime"
)

// Candidate describes one shell to attempt, paired with the snippet that
// sources its startup files. Bootstrap snippets always succeed: sourcing
// errors are redirected away and the snippet terminates with `|| true`.
type Candidate struct {
	// Path is the shell executable to invoke.
	Path string
	// Bootstrap is prepended to the command line to load the user's
	// environment. "true" means no startup files are sourced.
	Bootstrap string
}

const noBootstrap = "true"

var bootstraps = map[string]string{
	"zsh":  "source ~/.zshrc 2>/dev/null || source ~/.zprofile 2>/dev/null || true",
	"bash": "source ~/.bashrc 2>/dev/null || source ~/.bash_profile 2>/dev/null || true",
	"fish": "source ~/.config/fish/config.fish 2>/dev/null || true",
	"csh":  "source ~/.cshrc 2>/dev/null || true",
	"tcsh": "source ~/.tcshrc 2>/dev/null || source ~/.cshrc 2>/dev/null || true",
	"ksh":  "source ~/.kshrc 2>/dev/null || source ~/.profile 2>/dev/null || true",
}

var fishFallbacks = []string{"/usr/local/bin/fish", "/opt/homebrew/bin/fish"}

// Candidates returns the ordered list of shells to try, most preferred
// first: the user's $SHELL, then platform defaults not already present,
// then fish fallback locations, and finally POSIX sh with no bootstrap.
// The list is never empty.
func Candidates() []Candidate {
	return candidatesFor(os.Getenv("SHELL"), runtime.GOOS)
}

func candidatesFor(userShell, goos string) []Candidate {
	var shells []Candidate

	if userShell != "" {
		name := filepath.Base(userShell)
		switch name {
		case "zsh":
			shells = append(shells, Candidate{Path: "/bin/zsh", Bootstrap: bootstraps["zsh"]})
		case "bash":
			shells = append(shells, Candidate{Path: "/bin/bash", Bootstrap: bootstraps["bash"]})
		case "fish":
			for _, path := range fishFallbacks {
				shells = append(shells, Candidate{Path: path, Bootstrap: bootstraps["fish"]})
			}
		case "csh":
			shells = append(shells, Candidate{Path: "/bin/csh", Bootstrap: bootstraps["csh"]})
		case "tcsh":
			shells = append(shells, Candidate{Path: "/bin/tcsh", Bootstrap: bootstraps["tcsh"]})
		case "ksh":
			shells = append(shells, Candidate{Path: "/bin/ksh", Bootstrap: bootstraps["ksh"]})
		default:
			// Unknown shell: attempt it as-is without sourcing anything.
			shells = append(shells, Candidate{Path: userShell, Bootstrap: noBootstrap})
		}
	}

	// Platform defaults, skipped when the user's shell already covers them.
	// macOS defaults to zsh, everything else to bash.
	defaults := []string{"bash", "zsh"}
	if goos == "darwin" {
		defaults = []string{"zsh", "bash"}
	}
	for _, name := range defaults {
		if !hasBase(shells, name) {
			shells = append(shells, Candidate{Path: "/bin/" + name, Bootstrap: bootstraps[name]})
		}
	}

	if !hasBase(shells, "fish") {
		for _, path := range fishFallbacks {
			shells = append(shells, Candidate{Path: path, Bootstrap: bootstraps["fish"]})
		}
	}

	// Universal fallback. Always last, always present.
	shells = append(shells, Candidate{Path: "/bin/sh", Bootstrap: noBootstrap})
	return shells
}

func hasBase(shells []Candidate, name string) bool {
	for _, c := range shells {
		if filepath.Base(c.Path) == name {
			return true
		}
	}
	return false
}

// Flags returns the invocation flags for the candidate shell. Shells that
// support login mode are invoked with -l -c so profile files are read; fish
// and plain sh only support -c. The decision is made on the executable's
// base name so that "fish" is never mistaken for a flavour of "sh".
func (c Candidate) Flags() []string {
	switch filepath.Base(c.Path) {
	case "fish", "sh":
		return []string{"-c"}
	default:
		return []string{"-l", "-c"}
	}
}
