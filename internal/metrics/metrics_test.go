package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portside/portside/internal/metrics"
)

func TestRegistryExposesMetrics(t *testing.T) {
	metrics.EmitBuildInfo()
	metrics.RecordSpawn(metrics.OutcomeOK)
	metrics.RecordSpawn(metrics.OutcomeRejected)
	metrics.RecordShellFallback()
	metrics.RecordKillTree(metrics.OutcomeOK)
	metrics.RecordPortProbe(metrics.ProbeHit)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code from metrics handler: %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`portside_spawns_total{outcome="ok"} 1`,
		`portside_spawns_total{outcome="rejected"} 1`,
		"portside_shell_fallbacks_total 1",
		`portside_kill_trees_total{outcome="ok"} 1`,
		`portside_port_probe_results_total{result="hit"} 1`,
		"portside_build_info{",
		"go_version=",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics body:\n%s", want, body)
		}
	}
}
