package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ExposesInstruments(t *testing.T) {
	m := New()
	m.SamplerFailures.Inc()
	m.AlertsRaised.WithLabelValues("cpu_usage").Inc()
	m.MonitoredServers.Set(3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		"fleetmon_sampler_failures_total 1",
		`fleetmon_alerts_raised_total{alert_type="cpu_usage"} 1`,
		"fleetmon_monitored_servers 3",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.SnapshotsPersisted.Inc()

	families, err := b.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "fleetmon_snapshots_persisted_total" {
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 0 {
				t.Errorf("second registry saw %v, want 0", got)
			}
		}
	}
}
