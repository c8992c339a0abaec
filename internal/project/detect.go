package project

import (
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// detectPackageManager picks the package manager from lockfiles present in
// the directory file set. Lockfile order encodes precedence; npm is the
// default when nothing else matches.
func detectPackageManager(files map[string]struct{}) string {
	switch {
	case has(files, "pnpm-lock.yaml"):
		return "pnpm"
	case has(files, "yarn.lock"):
		return "yarn"
	case has(files, "package-lock.json"):
		return "npm"
	case has(files, "bun.lockb"), has(files, "bun.lock"):
		return "bun"
	default:
		return "npm"
	}
}

// detectFramework identifies the framework from config files, falling back
// to dependency sniffing in package.json.
func detectFramework(dir string, files map[string]struct{}) string {
	switch {
	case hasAny(files, "astro.config.mjs", "astro.config.js", "astro.config.ts"):
		return "astro"
	case hasAny(files, "next.config.js", "next.config.mjs", "next.config.ts"):
		return "nextjs"
	case hasAny(files, "svelte.config.js", "svelte.config.ts"):
		return "sveltekit"
	case hasAny(files, "nuxt.config.js", "nuxt.config.ts"):
		return "nuxt"
	case hasAny(files, "vite.config.js", "vite.config.ts", "vite.config.mjs"):
		return "vite"
	}

	if has(files, "package.json") {
		data, err := os.ReadFile(filepath.Join(dir, "package.json"))
		if err == nil {
			deps := gjson.GetBytes(data, "dependencies")
			for name, framework := range map[string]string{
				"astro":  "astro",
				"next":   "nextjs",
				"nuxt":   "nuxt",
				"svelte": "sveltekit",
				"react":  "react",
			} {
				if deps.Get(name).Exists() {
					return framework
				}
			}
		}
	}
	return "node"
}

func detectRuntime(files map[string]struct{}) string {
	switch {
	case hasAny(files, "deno.json", "deno.jsonc"):
		return RuntimeDeno
	case hasAny(files, "bun.lockb", "bun.lock"):
		return RuntimeBun
	default:
		return RuntimeNode
	}
}

func has(files map[string]struct{}, name string) bool {
	_, ok := files[name]
	return ok
}

func hasAny(files map[string]struct{}, names ...string) bool {
	for _, name := range names {
		if has(files, name) {
			return true
		}
	}
	return false
}

// listFiles builds the file-name set for a directory. Read failures yield
// an empty set; detection then falls back to defaults.
func listFiles(dir string) map[string]struct{} {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return map[string]struct{}{}
	}
	files := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		files[entry.Name()] = struct{}{}
	}
	return files
}
