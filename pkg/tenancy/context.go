// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"

	"github.com/canonical/schema-tenancy/internal/types"
)

type contextKey struct{}

var organizationContextKey = contextKey{}

func WithOrganization(ctx context.Context, org *types.Organization) context.Context {
	return context.WithValue(ctx, organizationContextKey, org)
}

// OrganizationFromContext returns the tenant the request is bound to
func OrganizationFromContext(ctx context.Context) (*types.Organization, bool) {
	org, ok := ctx.Value(organizationContextKey).(*types.Organization)
	return org, ok && org != nil
}

// SchemaFromContext returns the schema of the tenant the request is bound to
func SchemaFromContext(ctx context.Context) (string, bool) {
	org, ok := OrganizationFromContext(ctx)
	if !ok {
		return "", false
	}
	return org.SchemaName, true
}
