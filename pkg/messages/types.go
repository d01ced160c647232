// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package messages

import (
	"encoding/json"

	"github.com/canonical/schema-tenancy/internal/types"
)

type CreateRequest struct {
	Content  string          `json:"content" validate:"required,max=10000"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type ListResponse struct {
	Messages []*types.Message `json:"messages"`
	Page     int64            `json:"page"`
	Size     int64            `json:"size"`
}
