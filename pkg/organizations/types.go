// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package organizations

type CreateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type UpdateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}
