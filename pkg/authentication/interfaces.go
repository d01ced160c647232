// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"

	"github.com/canonical/schema-tenancy/internal/types"
)

type TokenManagerInterface interface {
	// Issue signs a session token for the user
	Issue(context.Context, *types.User) (string, error)
	// Verify validates a raw JWT string and returns its claims
	Verify(context.Context, string) (*Claims, error)
}

// UserStorageInterface is the subset of the storage used to re-fetch the
// token subject on every request
type UserStorageInterface interface {
	GetUserByID(context.Context, string) (*types.User, error)
}
