// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"net/http"
	"strings"
	"time"
)

const CookieName = "auth_token"

// CookieManager carries the session token in an http only cookie
type CookieManager struct {
	lifetime time.Duration
	secure   bool
}

func (c *CookieManager) SetToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.lifetime.Seconds()),
		Expires:  time.Now().Add(c.lifetime),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Token looks for a bearer token first and falls back to the session cookie
func (c *CookieManager) Token(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header); ok {
		return token, true
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	return cookie.Value, true
}

func bearerToken(headers http.Header) (string, bool) {
	bearer := headers.Get("Authorization")
	if bearer == "" {
		return "", false
	}

	// Only support "Bearer <token>" format (RFC 6750)
	if !strings.HasPrefix(bearer, "Bearer ") {
		return "", false
	}

	token := strings.TrimPrefix(bearer, "Bearer ")
	return token, token != ""
}

func NewCookieManager(lifetime time.Duration, secure bool) *CookieManager {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	return &CookieManager{
		lifetime: lifetime,
		secure:   secure,
	}
}
