// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package status

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
)

const defaultProbeInterval = 10 * time.Second

// HealthProbe keeps the grpc.health.v1 serving status in line with the
// database availability
type HealthProbe struct {
	db       PingerInterface
	server   *health.Server
	interval time.Duration

	serving bool

	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (h *HealthProbe) Server() *health.Server {
	return h.server
}

// Run probes the database until ctx is done, then marks the service as
// shutting down
func (h *HealthProbe) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Check runs a single probe and returns the resulting serving status
func (h *HealthProbe) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	availability := 1.0

	if err := h.db.Ping(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		availability = 0

		if h.serving {
			h.logger.Warnf("database unavailable, reporting not serving: %v", err)
		}
	}

	h.serving = status == healthpb.HealthCheckResponse_SERVING
	h.server.SetServingStatus("", status)
	h.monitor.SetDependencyAvailability(map[string]string{"component": "database"}, availability)

	return status
}

func NewHealthProbe(db PingerInterface, interval time.Duration, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *HealthProbe {
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	h := new(HealthProbe)

	h.db = db
	h.server = health.NewServer()
	h.interval = interval
	h.serving = true
	h.monitor = monitor
	h.logger = logger

	return h
}
