// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package messages

import (
	"context"

	"github.com/canonical/schema-tenancy/internal/types"
)

type ServiceInterface interface {
	List(context.Context, int64, int64) ([]*types.Message, error)
	Create(context.Context, *types.Organization, *types.User, *CreateRequest) (*types.Message, error)
}

// StorageInterface reads and writes the tenant tables through the bound search_path
type StorageInterface interface {
	ListMessages(context.Context, int64, int64) ([]*types.Message, error)
	CreateMessage(context.Context, *types.Message) (*types.Message, error)
}
