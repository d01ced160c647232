// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
)

const DefaultProvisionAttempts = 3

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage   StorageInterface
	db        TxRunnerInterface
	validator *validator.Validate

	maxAttempts int
	now         func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Create provisions the tenant schema and registers the organization in a
// single transaction. A schema name collision rolls everything back and the
// whole transaction is retried with a fresh name.
func (s *Service) Create(ctx context.Context, ownerID string, req *CreateRequest) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "organizations.Service.Create")
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: name is required and must be at most 255 characters", types.ErrInvalidInput)
	}

	var org *types.Organization

	for attempt := 1; ; attempt++ {
		schema, err := storage.NewSchemaName(s.now())
		if err != nil {
			return nil, err
		}

		err = s.db.WithTx(ctx, func(txCtx context.Context) error {
			var perr error
			org, perr = s.provision(txCtx, ownerID, req.Name, schema)
			return perr
		})

		if err == nil {
			break
		}

		if !errors.Is(err, storage.ErrSchemaConflict) || attempt >= s.maxAttempts {
			return nil, err
		}

		s.logger.Warnf("tenant schema %s already taken, retrying (attempt %d/%d)", schema, attempt, s.maxAttempts)
	}

	s.logger.Security().TenantCreated(ownerID, org.ID)
	s.logger.Infof("provisioned tenant schema %s for organization %s", org.SchemaName, org.ID)

	return org, nil
}

// provision runs the ordered steps of tenant creation, ctx must carry the
// transaction.
// The owner check is an early exit only, the unique constraint on the owner
// column settles concurrent creations.
func (s *Service) provision(ctx context.Context, ownerID, name, schema string) (*types.Organization, error) {
	_, err := s.storage.GetOrganizationByOwner(ctx, ownerID)
	if err == nil {
		return nil, storage.ErrAlreadyHasOrganization
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	owner, err := s.storage.GetUserByID(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	if err := s.storage.CreateTenantSchema(ctx, schema); err != nil {
		return nil, err
	}

	org, err := s.storage.CreateOrganization(ctx, &types.Organization{
		Name:       name,
		SchemaName: schema,
		CreatedBy:  owner.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.storage.SeedTenantSchema(ctx, schema, org, owner); err != nil {
		return nil, err
	}

	return org, nil
}

func (s *Service) GetByOwner(ctx context.Context, ownerID string) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "organizations.Service.GetByOwner")
	defer span.End()

	org, err := s.storage.GetOrganizationByOwner(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrNoOrganization
	}

	return org, err
}

// GetByID hides organizations owned by somebody else behind ErrNotFound
func (s *Service) GetByID(ctx context.Context, ownerID, id string) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "organizations.Service.GetByID")
	defer span.End()

	org, err := s.storage.GetOrganizationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if org.CreatedBy != ownerID {
		s.logger.Security().AuthzFailure(ownerID, "organization:"+id)
		return nil, storage.ErrNotFound
	}

	return org, nil
}

// Update renames the organization in the registry and in its tenant schema
func (s *Service) Update(ctx context.Context, ownerID, id string, req *UpdateRequest) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "organizations.Service.Update")
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: name is required and must be at most 255 characters", types.ErrInvalidInput)
	}

	var updated *types.Organization

	err := s.db.WithTx(ctx, func(txCtx context.Context) error {
		org, err := s.ownedOrganization(txCtx, ownerID, id, types.ErrForbidden)
		if err != nil {
			return err
		}

		if updated, err = s.storage.UpdateOrganizationName(txCtx, org.ID, req.Name); err != nil {
			return err
		}

		return s.storage.RenameTenantOrganization(txCtx, org.SchemaName, org.ID, req.Name)
	})

	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete drops the tenant schema and the registry row together
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	ctx, span := s.tracer.Start(ctx, "organizations.Service.Delete")
	defer span.End()

	var schema string

	err := s.db.WithTx(ctx, func(txCtx context.Context) error {
		org, err := s.ownedOrganization(txCtx, ownerID, id, storage.ErrNotFound)
		if err != nil {
			return err
		}
		schema = org.SchemaName

		if err := s.storage.DropTenantSchema(txCtx, org.SchemaName); err != nil {
			return err
		}

		return s.storage.DeleteOrganization(txCtx, org.ID)
	})

	if err != nil {
		return err
	}

	s.logger.Security().TenantDeleted(ownerID, id)
	s.logger.Infof("dropped tenant schema %s of organization %s", schema, id)

	return nil
}

// ownedOrganization returns denied when id is unknown or owned by another user
func (s *Service) ownedOrganization(ctx context.Context, ownerID, id string, denied error) (*types.Organization, error) {
	org, err := s.storage.GetOrganizationByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, denied
	}
	if err != nil {
		return nil, err
	}

	if org.CreatedBy != ownerID {
		s.logger.Security().AuthzFailure(ownerID, "organization:"+id)
		return nil, denied
	}

	return org, nil
}

func NewService(
	storage StorageInterface,
	db TxRunnerInterface,
	validator *validator.Validate,
	maxAttempts int,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultProvisionAttempts
	}

	return &Service{
		storage:     storage,
		db:          db,
		validator:   validator,
		maxAttempts: maxAttempts,
		now:         time.Now,
		tracer:      tracer,
		monitor:     monitor,
		logger:      logger,
	}
}
