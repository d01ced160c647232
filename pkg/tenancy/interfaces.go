// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"

	"github.com/canonical/schema-tenancy/internal/types"
)

// RegistryInterface is the subset of the storage used to find the caller's tenant
type RegistryInterface interface {
	GetOrganizationByOwner(context.Context, string) (*types.Organization, error)
}

type DBClientInterface interface {
	WithSearchPath(context.Context, string, func(context.Context) error) error
}
