package middleware

import (
	"fmt"
	"time"

	"suno-relay/internal/metrics"
	"suno-relay/internal/setup"
	"suno-relay/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func NewTrackMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID, _ := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 28)
			reqID = "req_" + reqID
			logger := log.With("request_id", reqID)

			cc := &setup.Context{Context: c, Log: logger, Reqid: reqID}
			start := time.Now()
			err := next(cc)
			if err != nil {
				// Let echo write the error now so the logged status is the real one
				cc.AddError(err)
				cc.Error(err)
			}
			duration := time.Since(start)
			status := cc.Response().Status

			fields := []any{
				"status_code", fmt.Sprintf("%d", status),
				"duration", duration.String(),
				"path", cc.Path(),
				"method", cc.Request().Method,
			}
			if cc.Err != nil {
				fields = append(fields, "error", cc.Err.Error())
			}
			switch {
			case status >= 500:
				cc.Log.Errorw("end_of_request", fields...)
			case status >= 400:
				cc.Log.Warnw("end_of_request", fields...)
			default:
				cc.Log.Infow("end_of_request", fields...)
			}
			metrics.ResponseCodes.WithLabelValues(cc.Path(), fmt.Sprintf("%d", status)).Inc()
			return nil
		}
	}
}

func NewRecoverMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return emw.RecoverWithConfig(emw.RecoverConfig{
		StackSize: 1 << 10, // 1 KB
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			defer func() {
				_ = log.Sync()
			}()
			log.Errorw("Api Panic", "error", err.Error(), "stack", string(stack))
			return c.JSON(500, shared.ErrorResponse{Detail: shared.ErrInternalServerError.Message()})
		},
	})
}

// NewCORSMiddleware allows every origin, method and header
func NewCORSMiddleware() echo.MiddlewareFunc {
	return emw.CORSWithConfig(emw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE", "OPTIONS",
		},
	})
}
