package upstream

import (
	"fmt"
	"net/http"
)

// UnavailableError is a transport level failure: DNS, refused connection,
// timeout. The upstream never answered.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return e.Err.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// StatusError is an upstream answer with a non-2xx status. Body holds the raw
// error text as sent by the upstream.
type StatusError struct {
	Op          string
	StatusCode  int
	Body        []byte
	ContentType string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s responded %d: %s", e.Op, e.StatusCode, string(e.Body))
}

// BodyContentType falls back to plain text when the upstream sent no type
func (e *StatusError) BodyContentType() string {
	if e.ContentType == "" {
		return "text/plain; charset=utf-8"
	}
	return e.ContentType
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
