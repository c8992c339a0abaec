package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
)

// Scan walks one level of subdirectories under root and returns the
// projects found there, sorted by name. A directory counts as a project
// when it holds a package.json or a deno config. Unreadable entries are
// skipped.
func Scan(root string, versions *Versions) ([]Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var projects []Project
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files := listFiles(dir)
		if !hasAny(files, "package.json", "deno.json", "deno.jsonc") {
			continue
		}
		projects = append(projects, describe(entry.Name(), dir, files, versions))
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// Describe inspects a single directory as a project.
func Describe(dir string, versions *Versions) Project {
	return describe(filepath.Base(dir), dir, listFiles(dir), versions)
}

func describe(name, dir string, files map[string]struct{}, versions *Versions) Project {
	p := Project{
		Name:           name,
		Path:           dir,
		Runtime:        detectRuntime(files),
		PackageManager: detectPackageManager(files),
		Framework:      detectFramework(dir, files),
		Scripts:        Scripts(dir),
	}
	p.ExpectedPort = ExpectedPort(dir, p.Framework, p.Scripts)
	if versions != nil {
		p.RuntimeVersion = versions.Lookup(p.Runtime)
	}
	return p
}

// Scripts returns the scripts table of the directory's package.json, or
// nil when there is none.
func Scripts(dir string) map[string]string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}
	scripts := gjson.GetBytes(data, "scripts")
	if !scripts.IsObject() {
		return nil
	}
	out := make(map[string]string)
	scripts.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			out[key.String()] = value.String()
		}
		return true
	})
	return out
}
