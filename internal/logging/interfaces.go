// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

type LoggerInterface interface {
	Errorf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Debugf(string, ...interface{})
	Fatalf(string, ...interface{})
	Error(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Debug(...interface{})
	Fatal(...interface{})
	Security() SecurityLoggerInterface
}

// SecurityLoggerInterface emits security relevant events following the
// OWASP logging vocabulary, e.g. authn_login_fail:<user>.
type SecurityLoggerInterface interface {
	AuthnLoginSuccess(user string)
	AuthnLoginFail(user string)
	AuthnTokenInvalid(reason string)
	AuthzFailure(user, resource string)
	UserCreated(user string)
	TenantCreated(user, tenant string)
	TenantDeleted(user, tenant string)
	SystemStartup()
	SystemShutdown()
}
