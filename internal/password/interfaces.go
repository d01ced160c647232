// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package password

type HasherInterface interface {
	Hash(string) (string, error)
	Compare(hash, password string) bool
}
