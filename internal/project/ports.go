package project

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultPorts maps a framework to its conventional dev-server port.
var defaultPorts = map[string]uint16{
	"astro":     4321,
	"nextjs":    3000,
	"vite":      5173,
	"react":     3000,
	"sveltekit": 5173,
	"nuxt":      3000,
	"deno":      8000,
}

// genericDefaultPort is used when the framework is unrecognised.
const genericDefaultPort uint16 = 3000

// DefaultPort returns the conventional dev-server port for a framework.
func DefaultPort(framework string) uint16 {
	if port, ok := defaultPorts[framework]; ok {
		return port
	}
	return genericDefaultPort
}

// ExpectedPort resolves the port a project's dev server is expected to
// bind: an explicit port in the framework config file wins, then a port
// spelled out in the dev or start script, then the framework default.
func ExpectedPort(dir, framework string, scripts map[string]string) uint16 {
	if port := portFromConfig(dir, framework); port != 0 {
		return port
	}
	for _, script := range []string{"dev", "start"} {
		if s, ok := scripts[script]; ok {
			if port := PortFromScript(s); port != 0 {
				return port
			}
		}
	}
	return DefaultPort(framework)
}

var frameworkConfigs = map[string][]string{
	"astro":  {"astro.config.mjs", "astro.config.js", "astro.config.ts"},
	"nextjs": {"next.config.js", "next.config.mjs", "next.config.ts"},
	"vite":   {"vite.config.js", "vite.config.ts", "vite.config.mjs"},
}

func portFromConfig(dir, framework string) uint16 {
	for _, name := range frameworkConfigs[framework] {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if port := portFromConfigText(string(data)); port != 0 {
			return port
		}
	}
	return 0
}

// portFromConfigText finds `port: N` declarations, directly or within the
// few lines following a `server:` block opener. Commented lines are
// ignored.
func portFromConfigText(content string) uint16 {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if isCommented(line) {
			continue
		}
		if port := portFromConfigLine(line); port != 0 {
			return port
		}
		if strings.Contains(line, "server:") || strings.Contains(line, "server {") {
			end := i + 4
			if end > len(lines) {
				end = len(lines)
			}
			for _, next := range lines[i+1 : end] {
				if isCommented(next) {
					continue
				}
				if port := portFromConfigLine(next); port != 0 {
					return port
				}
			}
		}
	}
	return 0
}

func isCommented(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}

func portFromConfigLine(line string) uint16 {
	idx := strings.Index(line, "port:")
	if idx < 0 {
		return 0
	}
	rest := line[idx+len("port:"):]
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		switch r {
		case ' ', '\t', ',', '}', ')', ']':
			return true
		}
		return false
	})
	if len(fields) == 0 {
		return 0
	}
	return parsePort(strings.Trim(fields[0], `"'{[(`))
}

// PortFromScript extracts an explicit port from a package.json script:
// --port N, -p N, --port=N, -p=N, PORT=N, or a :N suffix.
func PortFromScript(script string) uint16 {
	words := strings.Fields(script)
	for i, word := range words {
		if (word == "--port" || word == "-p") && i+1 < len(words) {
			if port := parsePort(words[i+1]); port != 0 {
				return port
			}
		}
		for _, prefix := range []string{"PORT=", "--port=", "-p="} {
			if rest, ok := strings.CutPrefix(word, prefix); ok {
				if port := parsePort(rest); port != 0 {
					return port
				}
			}
		}
		if idx := strings.LastIndex(word, ":"); idx >= 0 {
			candidate := word[idx+1:]
			if len(candidate) > 0 && len(candidate) <= 5 && allDigits(candidate) {
				if port := parsePort(candidate); port != 0 {
					return port
				}
			}
		}
	}
	return 0
}

func parsePort(s string) uint16 {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0
	}
	return uint16(n)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
