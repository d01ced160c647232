// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for storage operations.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrDuplicateKey           = errors.New("duplicate key violation")
	ErrForeignKeyViolation    = errors.New("foreign key violation")
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrAlreadyHasOrganization = errors.New("user already has an organization")
	ErrSchemaConflict         = errors.New("tenant schema name already in use")
	ErrInvalidSchemaName      = errors.New("invalid tenant schema name")
)

// PostgreSQL error codes
const (
	pgErrCodeUniqueViolation     = "23505"
	pgErrCodeForeignKeyViolation = "23503"
	pgErrCodeDuplicateSchema     = "42P06"
	pgErrCodeInvalidSchemaName   = "3F000"
)

// constraint names declared in the registry migration
const (
	constraintUsersEmail              = "users_email_key"
	constraintOrganizationsSchemaName = "organizations_schema_name_key"
	constraintOrganizationsCreatedBy  = "organizations_created_by_key"
)

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// IsDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgErrCodeUniqueViolation
}

// IsForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func IsForeignKeyViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgErrCodeForeignKeyViolation
}

// IsDuplicateSchemaError checks if a CREATE SCHEMA failed because the schema exists.
func IsDuplicateSchemaError(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgErrCodeDuplicateSchema
}

// IsUndefinedSchemaError checks if the statement referenced a schema that does not exist.
func IsUndefinedSchemaError(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgErrCodeInvalidSchemaName
}

// WrapDuplicateKeyError wraps a duplicate key error with context about which constraint was violated.
func WrapDuplicateKeyError(err error, context string) error {
	if !IsDuplicateKeyError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", context, ErrDuplicateKey)
}

// WrapForeignKeyError wraps a foreign key violation with context.
func WrapForeignKeyError(err error, context string) error {
	if !IsForeignKeyViolation(err) {
		return err
	}
	return fmt.Errorf("%s: %w", context, ErrForeignKeyViolation)
}

// mapConstraintError translates unique violations on known constraints into
// domain errors, anything else falls back to ErrDuplicateKey.
func mapConstraintError(err error) error {
	code, constraint := pgErrorCode(err)

	switch {
	case code == pgErrCodeDuplicateSchema:
		return ErrSchemaConflict
	case code != pgErrCodeUniqueViolation:
		return err
	}

	switch constraint {
	case constraintUsersEmail:
		return ErrDuplicateEmail
	case constraintOrganizationsCreatedBy:
		return ErrAlreadyHasOrganization
	case constraintOrganizationsSchemaName:
		return ErrSchemaConflict
	}

	return WrapDuplicateKeyError(err, constraint)
}
