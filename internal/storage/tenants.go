// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/schema-tenancy/internal/types"
)

const (
	schemaPrefix      = "org_"
	schemaRandomBytes = 4
	// postgres truncates identifiers longer than NAMEDATALEN-1
	maxIdentifierLength = 63
)

var schemaNameRegexp = regexp.MustCompile(`^org_[0-9]+_[0-9a-f]+$`)

// NewSchemaName returns a tenant schema name in the form
// org_<unix millis>_<8 hex chars>.
func NewSchemaName(now time.Time) (string, error) {
	b := make([]byte, schemaRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return fmt.Sprintf("%s%d_%s", schemaPrefix, now.UnixMilli(), hex.EncodeToString(b)), nil
}

// ValidateSchemaName guards every place where a schema name ends up in a
// statement as an identifier.
func ValidateSchemaName(name string) error {
	if len(name) > maxIdentifierLength || !schemaNameRegexp.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, name)
	}
	return nil
}

func qualified(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

func tenantDDL(schema string) []string {
	s := pgx.Identifier{schema}.Sanitize()
	organizations := qualified(schema, "organizations")
	users := qualified(schema, "users")
	messages := qualified(schema, "messages")

	return []string{
		fmt.Sprintf("CREATE SCHEMA %s", s),
		fmt.Sprintf(`CREATE TABLE %s (
    id UUID PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, organizations),
		fmt.Sprintf(`CREATE TABLE %s (
    id UUID PRIMARY KEY,
    organization_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    role VARCHAR(50) NOT NULL DEFAULT 'user',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, users, organizations),
		fmt.Sprintf(`CREATE TABLE %s (
    id UUID PRIMARY KEY,
    organization_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
    content TEXT NOT NULL,
    metadata JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, messages, organizations, users),
		fmt.Sprintf("CREATE INDEX ON %s (created_at DESC)", messages),
	}
}

// CreateTenantSchema creates the schema and its tables, it must run in the
// same transaction as the registry insert.
func (s *Storage) CreateTenantSchema(ctx context.Context, schema string) error {
	ctx, span := s.tracer.Start(ctx, "storage.CreateTenantSchema")
	defer span.End()

	if err := ValidateSchemaName(schema); err != nil {
		return err
	}

	for _, stmt := range tenantDDL(schema) {
		if err := s.db.Exec(ctx, stmt); err != nil {
			if IsDuplicateSchemaError(err) {
				return ErrSchemaConflict
			}
			return fmt.Errorf("failed to create tenant schema %s: %w", schema, err)
		}
	}

	return nil
}

// SeedTenantSchema mirrors the organization and copies the owner into the
// tenant as its admin. Credentials stay in public.users.
func (s *Storage) SeedTenantSchema(ctx context.Context, schema string, o *types.Organization, owner *types.User) error {
	ctx, span := s.tracer.Start(ctx, "storage.SeedTenantSchema")
	defer span.End()

	if err := ValidateSchemaName(schema); err != nil {
		return err
	}

	_, err := s.db.Statement(ctx).
		Insert(qualified(schema, "organizations")).
		Columns("id", "name", "created_at", "updated_at").
		Values(o.ID, o.Name, o.CreatedAt, o.UpdatedAt).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to mirror organization into %s: %w", schema, err)
	}

	_, err = s.db.Statement(ctx).
		Insert(qualified(schema, "users")).
		Columns("id", "organization_id", "name", "email", "role").
		Values(owner.ID, o.ID, owner.Name, owner.Email, types.RoleAdmin).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed tenant admin into %s: %w", schema, err)
	}

	return nil
}

func (s *Storage) RenameTenantOrganization(ctx context.Context, schema, id, name string) error {
	ctx, span := s.tracer.Start(ctx, "storage.RenameTenantOrganization")
	defer span.End()

	if err := ValidateSchemaName(schema); err != nil {
		return err
	}

	_, err := s.db.Statement(ctx).
		Update(qualified(schema, "organizations")).
		Set("name", name).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		if IsUndefinedSchemaError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to rename tenant organization in %s: %w", schema, err)
	}

	return nil
}

// DropTenantSchema drops the schema with every object in it.
// Only call it within the registry deletion transaction.
func (s *Storage) DropTenantSchema(ctx context.Context, schema string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DropTenantSchema")
	defer span.End()

	if err := ValidateSchemaName(schema); err != nil {
		return err
	}

	if err := s.db.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", pgx.Identifier{schema}.Sanitize())); err != nil {
		if IsUndefinedSchemaError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to drop tenant schema %s: %w", schema, err)
	}

	return nil
}

// ListTenantSchemas returns the names of the tenant schemas present in the
// database, registered or not
func (s *Storage) ListTenantSchemas(ctx context.Context) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListTenantSchemas")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("schema_name").
		From("information_schema.schemata").
		Where(sq.Like{"schema_name": schemaPrefix + "%"}).
		OrderBy("schema_name").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant schemas: %w", err)
	}
	defer rows.Close()

	schemas := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		// the LIKE prefix also matches names the generator never produces
		if ValidateSchemaName(name) == nil {
			schemas = append(schemas, name)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema rows: %w", err)
	}

	return schemas, nil
}
