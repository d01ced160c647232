// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring"
	"github.com/canonical/schema-tenancy/internal/password"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/internal/types"
)

const dummyPassword = "schema-tenancy-timing-equalizer"

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage   StorageInterface
	hasher    password.HasherInterface
	tokens    TokenIssuerInterface
	validator *validator.Validate

	dummyHash     string
	dummyHashOnce sync.Once

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Register creates the user with a hashed password and returns a session token
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*types.User, string, error) {
	ctx, span := s.tracer.Start(ctx, "users.Service.Register")
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.validator.Struct(req); err != nil {
		return nil, "", fmt.Errorf("%w: %s", types.ErrInvalidInput, validationMessage(err))
	}

	existing, err := s.storage.GetUserByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return nil, "", storage.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(req.Password)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return nil, "", fmt.Errorf("%w: password is too long", types.ErrInvalidInput)
	}
	if err != nil {
		return nil, "", err
	}

	user, err := s.storage.CreateUser(ctx, &types.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         types.RoleUser,
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Security().UserCreated(user.ID)

	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Login verifies the credentials and returns the user, the organization it
// owns if any and a session token.
// Unknown emails still pay for a hash comparison so timing does not reveal
// which addresses are registered.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*types.User, *types.Organization, string, error) {
	ctx, span := s.tracer.Start(ctx, "users.Service.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.validator.Struct(req); err != nil {
		return nil, nil, "", types.ErrUnauthenticated
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, "", err
	}

	if user == nil {
		s.hasher.Compare(s.getDummyHash(), req.Password)
		s.logger.Security().AuthnLoginFail(email)
		return nil, nil, "", types.ErrUnauthenticated
	}

	if !s.hasher.Compare(user.PasswordHash, req.Password) {
		s.logger.Security().AuthnLoginFail(email)
		return nil, nil, "", types.ErrUnauthenticated
	}

	org, err := s.storage.GetOrganizationByOwner(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		org, err = nil, nil
	}
	if err != nil {
		return nil, nil, "", err
	}

	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, nil, "", err
	}

	s.logger.Security().AuthnLoginSuccess(user.ID)

	return user, org, token, nil
}

func (s *Service) getDummyHash() string {
	s.dummyHashOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Errorf("failed to compute dummy hash: %v", err)
			return
		}
		s.dummyHash = hash
	})

	return s.dummyHash
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}

	return strings.Join(fields, ", ")
}

func NewService(
	storage StorageInterface,
	hasher password.HasherInterface,
	tokens TokenIssuerInterface,
	validator *validator.Validate,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		storage:   storage,
		hasher:    hasher,
		tokens:    tokens,
		validator: validator,
		tracer:    tracer,
		monitor:   monitor,
		logger:    logger,
	}
}
