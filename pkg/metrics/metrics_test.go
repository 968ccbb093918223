package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/Sternrassler/admin-api-client/pkg/client"
	_ "github.com/Sternrassler/admin-api-client/pkg/table"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestCanceledCounterRegistered(t *testing.T) {
	families, err := Gatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	// Label-free metrics are exported before the first observation.
	found := false
	for _, mf := range families {
		if mf.GetName() == "admin_api_canceled_total" {
			found = true
		}
	}
	if !found {
		t.Error("admin_api_canceled_total not registered")
	}
}

func TestNamesUseAdminPrefix(t *testing.T) {
	seen := make(map[string]bool)
	for _, name := range Names {
		if seen[name] {
			t.Errorf("duplicate metric name %s", name)
		}
		seen[name] = true
		if len(name) < 6 || name[:6] != "admin_" {
			t.Errorf("metric %s lacks the admin_ prefix", name)
		}
	}
}
