// Package routers maps relay and callback operations onto HTTP
package routers

import (
	"errors"
	"net/http"

	"suno-relay/internal/setup"
	"suno-relay/internal/shared"
	"suno-relay/internal/upstream"
)

// writeError is the single place errors turn into responses. Upstream status
// errors are relayed with the upstream's own status and raw body.
func writeError(c *setup.Context, err error) error {
	c.AddError(err)

	var serr *upstream.StatusError
	if errors.As(err, &serr) {
		return c.Blob(serr.StatusCode, serr.BodyContentType(), serr.Body)
	}

	var uerr *upstream.UnavailableError
	if errors.As(err, &uerr) {
		if upstream.IsTimeout(err) {
			c.Log.Warnw("Upstream timed out", "operation", uerr.Op)
		}
		return c.JSON(http.StatusBadGateway, shared.ErrorResponse{Detail: "Upstream error: " + uerr.Error()})
	}

	var rerr *shared.RequestError
	if errors.As(err, &rerr) {
		return c.JSON(rerr.StatusCode, shared.ErrorResponse{Detail: rerr.Message()})
	}

	return c.JSON(http.StatusInternalServerError, shared.ErrorResponse{Detail: shared.ErrInternalServerError.Message()})
}
