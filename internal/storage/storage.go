// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"github.com/canonical/schema-tenancy/internal/db"
	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/tracing"
)

var _ StorageInterface = (*Storage)(nil)

// Storage is the single entry point to the database.
// Registry and credential queries are always qualified with the public
// schema, a request bound to a tenant resolves unqualified users and
// organizations to the tenant tables.
// Tenant messages are the only unqualified queries, they only resolve
// through a bound search_path.
type Storage struct {
	db db.DBClientInterface

	logger  logging.LoggerInterface
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
}

func NewStorage(c db.DBClientInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Storage {
	s := new(Storage)

	s.db = c

	s.logger = logger
	s.tracer = tracer
	s.monitor = monitor

	return s
}
