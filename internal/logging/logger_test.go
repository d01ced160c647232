// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{input: "DEBUG", expected: zapcore.DebugLevel},
		{input: "info", expected: zapcore.InfoLevel},
		{input: "warning", expected: zapcore.WarnLevel},
		{input: "error", expected: zapcore.ErrorLevel},
		{input: "invalid", expected: zapcore.ErrorLevel},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			logger := NewLogger(test.input)

			if lvl := logger.Level(); lvl != test.expected {
				t.Errorf("expected level %v, got %v", test.expected, lvl)
			}
			if logger.Security() == nil {
				t.Error("expected security logger to be set")
			}
		})
	}
}

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NewNoopLogger()

	logger.Errorf("error %s", "message")
	logger.Security().AuthnLoginFail("user@example.com")
	logger.Security().TenantCreated("user-1", "org_1_abcd")
	logger.Security().SystemShutdown()
}
