// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package users

import (
	"context"

	"github.com/canonical/schema-tenancy/internal/types"
)

type ServiceInterface interface {
	Register(context.Context, *RegisterRequest) (*types.User, string, error)
	Login(context.Context, *LoginRequest) (*types.User, *types.Organization, string, error)
}

// StorageInterface is the subset of the storage backing the credential store
type StorageInterface interface {
	CreateUser(context.Context, *types.User) (*types.User, error)
	GetUserByEmail(context.Context, string) (*types.User, error)
	GetOrganizationByOwner(context.Context, string) (*types.Organization, error)
}

type TokenIssuerInterface interface {
	Issue(context.Context, *types.User) (string, error)
}
