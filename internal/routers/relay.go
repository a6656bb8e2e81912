package routers

import (
	"errors"
	"io"
	"net/http"

	"suno-relay/internal/handlers/relay"
	"suno-relay/internal/metrics"
	"suno-relay/internal/middleware"
	"suno-relay/internal/setup"
	"suno-relay/internal/shared"
	"suno-relay/internal/upstream"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type RelayRouter struct {
	rh *relay.RelayHandler
}

func RegisterRelayRoutes(e *echo.Group, client relay.Upstream, log *zap.SugaredLogger) {
	relayRouter := RelayRouter{rh: relay.NewRelayHandler(client, log)}

	// Route level so unknown paths still 404 instead of asking for a key
	requireKey := middleware.RequireAPIKey
	e.POST("/generate", relayRouter.Generate, requireKey)
	e.GET("/status", relayRouter.Status, requireKey)
	e.GET("/lyrics", relayRouter.Lyrics, requireKey)
	e.GET("/stream", relayRouter.Stream, requireKey)
	e.GET("/download", relayRouter.Download, requireKey)
}

func caller(c *setup.Context) relay.Caller {
	return relay.Caller{APIKey: c.APIKey, RequestID: c.Reqid}
}

func writeUpstreamJSON(c *setup.Context, res *upstream.Response) error {
	return c.Blob(res.StatusCode, echo.MIMEApplicationJSON, res.Body)
}

func (rr *RelayRouter) Generate(cc echo.Context) error {
	c := cc.(*setup.Context)
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.AddError(err)
		return writeError(c, shared.ErrInvalidJSON)
	}

	res, err := rr.rh.Generate(c.Request().Context(), caller(c), body)
	if err != nil {
		return writeError(c, err)
	}
	return writeUpstreamJSON(c, res)
}

func (rr *RelayRouter) Status(cc echo.Context) error {
	return rr.lookup(cc, relay.OpStatus)
}

func (rr *RelayRouter) Lyrics(cc echo.Context) error {
	return rr.lookup(cc, relay.OpLyrics)
}

func (rr *RelayRouter) lookup(cc echo.Context, op string) error {
	c := cc.(*setup.Context)
	res, err := rr.rh.Lookup(c.Request().Context(), op, caller(c), c.QueryParam("id"))
	if err != nil {
		return writeError(c, err)
	}
	return writeUpstreamJSON(c, res)
}

// Stream relays the upstream audio chunk by chunk. Nothing is written until
// the upstream has answered, so early failures still get a JSON error.
func (rr *RelayRouter) Stream(cc echo.Context) error {
	c := cc.(*setup.Context)
	res, err := rr.rh.Stream(c.Request().Context(), caller(c), c.QueryParam("id"))
	if err != nil {
		return writeError(c, err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			c.Log.Warnw("Failed to close upstream stream", "error", closeErr)
		}
	}()

	c.Response().Header().Set(echo.HeaderContentType, shared.AudioContentType)
	c.Response().WriteHeader(http.StatusOK)

	written, err := copyChunks(c, res.Body)
	metrics.StreamedBytes.WithLabelValues(relay.OpStream).Add(float64(written))
	if err != nil {
		// Headers are gone already, all we can do is log and stop
		c.AddError(err)
		c.Log.Warnw("Stream ended early", "error", err, "bytes", written)
	}
	return nil
}

// copyChunks reads up to StreamChunkSize at a time and flushes every chunk to
// the caller in arrival order.
func copyChunks(c *setup.Context, body io.Reader) (int64, error) {
	buf := make([]byte, shared.StreamChunkSize)
	var written int64
	for {
		if err := c.Request().Context().Err(); err != nil {
			return written, err
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := c.Response().Write(buf[:n]); err != nil {
				return written, errors.Join(shared.ErrClientWrite, err)
			}
			c.Response().Flush()
			written += int64(n)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, errors.Join(shared.ErrUpstreamRead, readErr)
		}
	}
}

func (rr *RelayRouter) Download(cc echo.Context) error {
	c := cc.(*setup.Context)
	id := c.QueryParam("id")
	res, err := rr.rh.Download(c.Request().Context(), caller(c), id)
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+relay.DownloadFilename(id))
	metrics.StreamedBytes.WithLabelValues(relay.OpDownload).Add(float64(len(res.Body)))
	return c.Blob(http.StatusOK, shared.AudioContentType, res.Body)
}
