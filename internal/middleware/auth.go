// Package middleware defines request tracking, recovery and credential
// middleware
package middleware

import (
	"suno-relay/internal/setup"
	"suno-relay/internal/shared"

	"github.com/labstack/echo/v4"
)

// RequireAPIKey resolves the caller's Suno key before anything touches the
// upstream. Missing keys are rejected with 400.
func RequireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(cc echo.Context) error {
		c := cc.(*setup.Context)
		apiKey, err := shared.ExtractAPIKey(c)
		if err != nil {
			c.AddError(err)
			return c.JSON(shared.ErrMissingAPIKey.StatusCode, shared.ErrorResponse{Detail: shared.ErrMissingAPIKey.Message()})
		}
		c.APIKey = apiKey
		return next(c)
	}
}

// RequireMetricsKey guards /metrics when a key is configured
func RequireMetricsKey(metricsAPIKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if metricsAPIKey == "" {
				return next(c)
			}
			apiKey, err := shared.ExtractBearerToken(c)
			if err != nil {
				return c.String(401, "Missing or invalid API key")
			}
			if apiKey != metricsAPIKey {
				return c.String(401, "Unauthorized API key")
			}
			return next(c)
		}
	}
}
