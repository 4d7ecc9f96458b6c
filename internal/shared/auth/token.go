package auth

import (
	"net/http"
	"strings"
)

// ExtractBearerToken extracts the token from the Authorization header.
// It handles the "Bearer " prefix and returns an empty string if no token is present.
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	return ExtractBearerTokenFromHeader(r.Header.Get("Authorization"))
}

// ExtractBearerTokenFromHeader extracts the token from an Authorization header value.
//
// Example:
//
//	token := ExtractBearerTokenFromHeader("Bearer eyJhbGciOiJIUzI1NiIs...")
func ExtractBearerTokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	const bearerPrefix = "bearer "
	if strings.HasPrefix(strings.ToLower(header), bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}

	return ""
}

// ExtractTokenFromCookie returns the trimmed value of the named cookie.
func ExtractTokenFromCookie(r *http.Request, cookieName string) string {
	if r == nil || strings.TrimSpace(cookieName) == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// ExtractToken attempts to extract a session token from multiple sources in order:
// 1. Session cookie
// 2. Authorization header (Bearer token), used by the CLI and API clients
//
// Returns the first non-empty token found.
func ExtractToken(r *http.Request, cookieName string) string {
	if token := ExtractTokenFromCookie(r, cookieName); token != "" {
		return token
	}
	return ExtractBearerToken(r)
}
