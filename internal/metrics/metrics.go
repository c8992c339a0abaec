// Package metrics exposes Prometheus counters for the supervision core.
package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	spawns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portside",
		Name:      "spawns_total",
		Help:      "Processes launched, by outcome.",
	}, []string{"outcome"})

	shellFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "portside",
		Name:      "shell_fallbacks_total",
		Help:      "Launches that fell back past the preferred shell.",
	})

	killTrees = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portside",
		Name:      "kill_trees_total",
		Help:      "Process-tree terminations, by outcome.",
	}, []string{"outcome"})

	portProbes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portside",
		Name:      "port_probe_results_total",
		Help:      "Port probe results, by result class.",
	}, []string{"result"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "portside",
		Name:      "build_info",
		Help:      "Build metadata for the running portside binary.",
	}, []string{"go_version", "vcs_revision", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(spawns, shellFallbacks, killTrees, portProbes, buildInfo)
}

// Registry returns the Prometheus registry containing all portside
// metrics.
func Registry() *prometheus.Registry {
	return registry
}

// Spawn outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeNotFound = "not_found"
)

// Port probe result labels.
const (
	ProbeHit  = "hit"
	ProbeMiss = "miss"
	ProbeErr  = "error"
)

// RecordSpawn counts a spawn attempt.
func RecordSpawn(outcome string) {
	spawns.WithLabelValues(outcome).Inc()
}

// RecordShellFallback counts a launch that used a non-preferred shell.
func RecordShellFallback() {
	shellFallbacks.Inc()
}

// RecordKillTree counts a tree termination attempt.
func RecordKillTree(outcome string) {
	killTrees.WithLabelValues(outcome).Inc()
}

// RecordPortProbe counts a port probe.
func RecordPortProbe(result string) {
	portProbes.WithLabelValues(result).Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs_revision": "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
