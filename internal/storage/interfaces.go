// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"

	"github.com/canonical/schema-tenancy/internal/types"
)

type StorageInterface interface {
	CreateUser(ctx context.Context, u *types.User) (*types.User, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)

	CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error)
	GetOrganizationByID(ctx context.Context, id string) (*types.Organization, error)
	GetOrganizationByOwner(ctx context.Context, ownerID string) (*types.Organization, error)
	ListOrganizations(ctx context.Context) ([]*types.Organization, error)
	UpdateOrganizationName(ctx context.Context, id, name string) (*types.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error

	CreateTenantSchema(ctx context.Context, schema string) error
	SeedTenantSchema(ctx context.Context, schema string, o *types.Organization, owner *types.User) error
	RenameTenantOrganization(ctx context.Context, schema, id, name string) error
	DropTenantSchema(ctx context.Context, schema string) error
	ListTenantSchemas(ctx context.Context) ([]string, error)

	ListMessages(ctx context.Context, page, size int64) ([]*types.Message, error)
	CreateMessage(ctx context.Context, m *types.Message) (*types.Message, error)
}
