// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"fmt"

	"go.uber.org/zap"
)

var _ SecurityLoggerInterface = (*SecurityLogger)(nil)

const securityLogType = "security"

// SecurityLogger is always emitted at warn level or above so that the events
// survive the default error level only for failures.
type SecurityLogger struct {
	l *zap.Logger
}

func (s *SecurityLogger) AuthnLoginSuccess(user string) {
	s.info(fmt.Sprintf("authn_login_success:%s", user), "User %s login successfully", user)
}

func (s *SecurityLogger) AuthnLoginFail(user string) {
	s.warn(fmt.Sprintf("authn_login_fail:%s", user), "User %s login failed", user)
}

func (s *SecurityLogger) AuthnTokenInvalid(reason string) {
	s.warn("authn_token_invalid", "Session token rejected: %s", reason)
}

func (s *SecurityLogger) AuthzFailure(user, resource string) {
	s.warn(fmt.Sprintf("authz_fail:%s,%s", user, resource), "User %s attempted to access %s without entitlement", user, resource)
}

func (s *SecurityLogger) UserCreated(user string) {
	s.warn(fmt.Sprintf("user_created:%s", user), "User %s has been created", user)
}

func (s *SecurityLogger) TenantCreated(user, tenant string) {
	s.warn(fmt.Sprintf("tenant_created:%s,%s", user, tenant), "User %s created tenant %s", user, tenant)
}

func (s *SecurityLogger) TenantDeleted(user, tenant string) {
	s.warn(fmt.Sprintf("tenant_deleted:%s,%s", user, tenant), "User %s deleted tenant %s", user, tenant)
}

func (s *SecurityLogger) SystemStartup() {
	s.warn("sys_startup", "Service is starting")
}

func (s *SecurityLogger) SystemShutdown() {
	s.warn("sys_shutdown", "Service is shutting down")
}

func (s *SecurityLogger) info(event, format string, args ...interface{}) {
	s.l.Info(fmt.Sprintf(format, args...), zap.String("type", securityLogType), zap.String("event", event))
}

func (s *SecurityLogger) warn(event, format string, args ...interface{}) {
	s.l.Warn(fmt.Sprintf(format, args...), zap.String("type", securityLogType), zap.String("event", event))
}

func newSecurityLogger(l *zap.Logger) *SecurityLogger {
	return &SecurityLogger{l: l}
}
