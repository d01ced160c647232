// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package prometheus

import (
	"testing"

	"github.com/canonical/schema-tenancy/internal/logging"
)

func TestMonitorRecordsMetrics(t *testing.T) {
	m := NewMonitor("schema-tenancy-test", logging.NewNoopLogger())

	if m.GetService() != "schema-tenancy-test" {
		t.Errorf("unexpected service %q", m.GetService())
	}

	if err := m.SetResponseTimeMetric(map[string]string{"route": "GET/api/organizations", "status": "200"}, 0.2); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := m.SetDependencyAvailability(map[string]string{"component": "database"}, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMonitorRegistersTwice(t *testing.T) {
	logger := logging.NewNoopLogger()

	NewMonitor("schema-tenancy-dup", logger)
	m := NewMonitor("schema-tenancy-dup", logger)

	if err := m.SetResponseTimeMetric(map[string]string{"route": "GET/", "status": "200"}, 0.1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
