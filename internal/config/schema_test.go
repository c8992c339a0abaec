package config

import (
	"strings"
	"testing"
)

func TestSchemaRejectsWrongTypes(t *testing.T) {
	cases := []struct {
		name     string
		manifest string
		want     string
	}{
		{
			name:     "workspaces not a list",
			manifest: "workspaces: /code\n",
			want:     "workspaces",
		},
		{
			name:     "buffer not an integer",
			manifest: "events:\n  buffer: lots\n",
			want:     "events.buffer",
		},
		{
			name:     "port out of range",
			manifest: "supervise:\n  wellKnownPorts: [70000]\n",
			want:     "supervise.wellKnownPorts",
		},
		{
			name:     "grace not a duration",
			manifest: "supervise:\n  grace: soon\n",
			want:     "supervise.grace",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, tc.manifest)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected schema validation error")
			}
			if !strings.Contains(err.Error(), "invalid manifest") {
				t.Fatalf("error %q missing manifest prefix", err.Error())
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestSchemaAcceptsFullManifest(t *testing.T) {
	path := writeManifest(t, `
workspaces: [/code, /srv/sites]
api:
  addr: 127.0.0.1:9000
events:
  buffer: 64
supervise:
  killDepth: 4
  probeDepth: 3
  grace: 1.5s
  wellKnownPorts: [3000, 4321, 5173]
env:
  NODE_ENV: development
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestManifestKey(t *testing.T) {
	tests := map[string]string{
		"":                            "manifest",
		"/":                           "manifest",
		"/supervise/grace":            "supervise.grace",
		"/workspaces/0":               "workspaces[0]",
		"/supervise/wellKnownPorts/2": "supervise.wellKnownPorts[2]",
	}
	for ptr, want := range tests {
		if got := manifestKey(ptr); got != want {
			t.Fatalf("manifestKey(%q) = %q, want %q", ptr, got, want)
		}
	}
}
