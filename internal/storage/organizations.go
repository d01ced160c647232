// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/schema-tenancy/internal/types"
)

const organizationsTable = "public.organizations"

var organizationColumns = []string{"id", "name", "schema_name", "created_by", "created_at", "updated_at"}

func scanOrganization(row sq.RowScanner) (*types.Organization, error) {
	var o types.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.SchemaName, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrganization inserts the registry row, it is meant to run inside the
// provisioning transaction together with CreateTenantSchema and SeedTenantSchema.
func (s *Storage) CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateOrganization")
	defer span.End()

	if err := ValidateSchemaName(o.SchemaName); err != nil {
		return nil, err
	}

	id := o.ID
	if id == "" {
		uid, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate organization ID: %w", err)
		}
		id = uid.String()
	}

	created, err := scanOrganization(
		s.db.Statement(ctx).
			Insert(organizationsTable).
			Columns("id", "name", "schema_name", "created_by").
			Values(id, o.Name, o.SchemaName, o.CreatedBy).
			Suffix("RETURNING id, name, schema_name, created_by, created_at, updated_at").
			QueryRowContext(ctx),
	)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, mapConstraintError(err)
		}
		if IsForeignKeyViolation(err) {
			return nil, WrapForeignKeyError(err, "organization owner")
		}
		return nil, fmt.Errorf("failed to insert organization: %w", err)
	}

	return created, nil
}

func (s *Storage) GetOrganizationByID(ctx context.Context, id string) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetOrganizationByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	return s.getOrganization(ctx, sq.Eq{"id": id})
}

func (s *Storage) GetOrganizationByOwner(ctx context.Context, ownerID string) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetOrganizationByOwner")
	defer span.End()

	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, ErrNotFound
	}

	return s.getOrganization(ctx, sq.Eq{"created_by": ownerID})
}

func (s *Storage) getOrganization(ctx context.Context, where sq.Eq) (*types.Organization, error) {
	o, err := scanOrganization(
		s.db.Statement(ctx).
			Select(organizationColumns...).
			From(organizationsTable).
			Where(where).
			QueryRowContext(ctx),
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return o, nil
}

func (s *Storage) ListOrganizations(ctx context.Context) ([]*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListOrganizations")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select(organizationColumns...).
		From(organizationsTable).
		OrderBy("created_at").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	organizations := make([]*types.Organization, 0)
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		organizations = append(organizations, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}

	return organizations, nil
}

func (s *Storage) UpdateOrganizationName(ctx context.Context, id, name string) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateOrganizationName")
	defer span.End()

	o, err := scanOrganization(
		s.db.Statement(ctx).
			Update(organizationsTable).
			Set("name", name).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"id": id}).
			Suffix("RETURNING id, name, schema_name, created_by, created_at, updated_at").
			QueryRowContext(ctx),
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return o, nil
}

// DeleteOrganization removes the registry row only, the tenant schema is
// dropped by DropTenantSchema within the same transaction.
func (s *Storage) DeleteOrganization(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteOrganization")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Delete(organizationsTable).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
