// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package organizations

import (
	"context"

	"github.com/canonical/schema-tenancy/internal/types"
)

type ServiceInterface interface {
	Create(context.Context, string, *CreateRequest) (*types.Organization, error)
	GetByOwner(context.Context, string) (*types.Organization, error)
	GetByID(context.Context, string, string) (*types.Organization, error)
	Update(context.Context, string, string, *UpdateRequest) (*types.Organization, error)
	Delete(context.Context, string, string) error
}

// StorageInterface covers the registry and the tenant provisioner
type StorageInterface interface {
	GetUserByID(context.Context, string) (*types.User, error)

	CreateOrganization(context.Context, *types.Organization) (*types.Organization, error)
	GetOrganizationByID(context.Context, string) (*types.Organization, error)
	GetOrganizationByOwner(context.Context, string) (*types.Organization, error)
	UpdateOrganizationName(context.Context, string, string) (*types.Organization, error)
	DeleteOrganization(context.Context, string) error

	CreateTenantSchema(context.Context, string) error
	SeedTenantSchema(context.Context, string, *types.Organization, *types.User) error
	RenameTenantOrganization(context.Context, string, string, string) error
	DropTenantSchema(context.Context, string) error
}

type TxRunnerInterface interface {
	WithTx(context.Context, func(context.Context) error) error
}
