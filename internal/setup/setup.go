// Package setup holds the per request context shared by middleware and routers
package setup

import (
	"errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Context struct {
	echo.Context
	Log    *zap.SugaredLogger
	Reqid  string
	APIKey string

	// Only read when logging the end of the request
	Err error
}

// AddError adds errors to the error chain. Always add errors, even if only
// warnings; the log level is picked from the status code.
func (c *Context) AddError(err error) {
	if err == nil {
		return
	}
	if c.Err == nil {
		c.Err = err
		return
	}
	c.Err = errors.Join(c.Err, err)
}
