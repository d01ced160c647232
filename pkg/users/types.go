// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package users

import "github.com/canonical/schema-tenancy/internal/types"

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

type LoginResponse struct {
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	Organization *types.Organization `json:"organization"`
}

type SessionResponse struct {
	IsLoggedIn   bool                `json:"isLoggedIn"`
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	Organization *types.Organization `json:"organization"`
}

type ProfileResponse struct {
	User LoginResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
