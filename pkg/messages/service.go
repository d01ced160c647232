// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package messages

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
)

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage   StorageInterface
	validator *validator.Validate

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// List returns the newest messages of the tenant bound to ctx
func (s *Service) List(ctx context.Context, page, size int64) ([]*types.Message, error) {
	ctx, span := s.tracer.Start(ctx, "messages.Service.List")
	defer span.End()

	return s.storage.ListMessages(ctx, page, size)
}

func (s *Service) Create(ctx context.Context, org *types.Organization, user *types.User, req *CreateRequest) (*types.Message, error) {
	ctx, span := s.tracer.Start(ctx, "messages.Service.Create")
	defer span.End()

	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: content is required and must be at most 10000 characters", types.ErrInvalidInput)
	}

	metadata := req.Metadata
	if bytes.Equal(bytes.TrimSpace(metadata), []byte("null")) {
		metadata = nil
	}

	return s.storage.CreateMessage(ctx, &types.Message{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Content:        req.Content,
		Metadata:       metadata,
	})
}

func NewService(
	storage StorageInterface,
	validator *validator.Validate,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		storage:   storage,
		validator: validator,
		tracer:    tracer,
		monitor:   monitor,
		logger:    logger,
	}
}
