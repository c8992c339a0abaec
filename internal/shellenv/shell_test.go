package shellenv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCandidatesEndWithPOSIXSh(t *testing.T) {
	for _, userShell := range []string{"", "/bin/zsh", "/usr/local/bin/fish", "/opt/weird/xonsh"} {
		shells := candidatesFor(userShell, "linux")
		require.NotEmpty(t, shells)
		last := shells[len(shells)-1]
		require.Equal(t, "/bin/sh", last.Path)
		require.Equal(t, "true", last.Bootstrap)
	}
}

func TestCandidatesPreferUserShell(t *testing.T) {
	shells := candidatesFor("/usr/bin/zsh", "linux")
	require.Equal(t, "/bin/zsh", shells[0].Path)
	require.Contains(t, shells[0].Bootstrap, ".zshrc")
}

func TestCandidatesUnknownShellTriedAsIs(t *testing.T) {
	shells := candidatesFor("/opt/weird/xonsh", "linux")
	require.Equal(t, "/opt/weird/xonsh", shells[0].Path)
	require.Equal(t, "true", shells[0].Bootstrap)
}

func TestCandidatesPlatformDefaults(t *testing.T) {
	linux := candidatesFor("", "linux")
	require.Equal(t, "/bin/bash", linux[0].Path)

	darwin := candidatesFor("", "darwin")
	require.Equal(t, "/bin/zsh", darwin[0].Path)
}

func TestCandidatesNoDuplicateDefaults(t *testing.T) {
	shells := candidatesFor("/bin/bash", "linux")
	seen := 0
	for _, c := range shells {
		if filepath.Base(c.Path) == "bash" {
			seen++
		}
	}
	require.Equal(t, 1, seen)
}

func TestCandidatesFishFallbackPaths(t *testing.T) {
	shells := candidatesFor("/usr/local/bin/fish", "darwin")
	require.Equal(t, "/usr/local/bin/fish", shells[0].Path)
	require.Equal(t, "/opt/homebrew/bin/fish", shells[1].Path)
}

func TestFlagsLoginModeByBaseName(t *testing.T) {
	cases := map[string][]string{
		"/bin/zsh":            {"-l", "-c"},
		"/bin/bash":           {"-l", "-c"},
		"/bin/tcsh":           {"-l", "-c"},
		"/bin/ksh":            {"-l", "-c"},
		"/usr/local/bin/fish": {"-c"},
		"/bin/sh":             {"-c"},
	}
	for path, want := range cases {
		c := Candidate{Path: path}
		require.Equal(t, want, c.Flags(), "flags for %s", path)
	}
}

func TestFlagsFishNotMistakenForSh(t *testing.T) {
	// "fish" contains "sh" as a substring; the flag choice must come from
	// the base name, not a substring match.
	c := Candidate{Path: "/opt/homebrew/bin/fish"}
	require.Equal(t, []string{"-c"}, c.Flags())
}
