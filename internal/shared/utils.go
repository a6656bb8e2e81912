// Package shared
package shared

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ResolveAPIKey picks the caller credential. The header wins when both are
// set; both sources are trimmed first.
func ResolveAPIKey(header, query string) (string, error) {
	if key := strings.TrimSpace(header); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(query); key != "" {
		return key, nil
	}
	return "", ErrMissingAPIKey
}

// LookupHeader finds a header ignoring case and treating '_' and '-' as the
// same character.
func LookupHeader(h http.Header, name string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	want := normalizeHeaderName(name)
	for k, vals := range h {
		if len(vals) == 0 {
			continue
		}
		if normalizeHeaderName(k) == want {
			return vals[0]
		}
	}
	return ""
}

func normalizeHeaderName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}

// ExtractAPIKey resolves the Suno key from the request header or query
func ExtractAPIKey(c echo.Context) (string, error) {
	return ResolveAPIKey(
		LookupHeader(c.Request().Header, APIKeyHeader),
		c.QueryParam(APIKeyQueryParam),
	)
}

// ExtractBearerToken reads a bearer token from the Authorization header
func ExtractBearerToken(c echo.Context) (string, error) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingAuth
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidFormat
	}
	return parts[1], nil
}
