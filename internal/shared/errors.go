package shared

import (
	"errors"
	"fmt"
)

// RequestError is used when we want a specific error message and StatusCode.
// The message inside Err is returned to the caller as is, so anything that
// should only show up in logs needs to be joined next to the RequestError
// instead of wrapped inside it.
type RequestError struct {
	StatusCode int
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status %d: err %v", r.StatusCode, r.Err)
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

// Message is the caller facing text of the error
func (r *RequestError) Message() string {
	if r.Err == nil {
		return "request error"
	}
	return r.Err.Error()
}

var (
	ErrMissingAPIKey  = &RequestError{Err: errors.New("Missing API key (send in 'x-suno-api-key' header or 'api_key' query param)"), StatusCode: 400}
	ErrInvalidJSON    = &RequestError{Err: errors.New("Invalid JSON body"), StatusCode: 400}
	ErrPromptRequired = &RequestError{Err: errors.New("Prompt is required"), StatusCode: 400}
	ErrPromptTooLong  = &RequestError{Err: fmt.Errorf("Prompt must be <= %d characters", MaxPromptLength), StatusCode: 400}
	ErrModelRequired  = &RequestError{Err: errors.New("Model is required"), StatusCode: 400}
	ErrIDRequired     = &RequestError{Err: errors.New("Query parameter 'id' is required"), StatusCode: 400}

	ErrMissingAuth   = &RequestError{Err: errors.New("missing authorization header"), StatusCode: 401}
	ErrInvalidFormat = &RequestError{Err: errors.New("invalid authentication format"), StatusCode: 401}

	ErrInternalServerError = &RequestError{Err: errors.New("internal server error"), StatusCode: 500}

	ErrUpstreamTransport = &MetricsError{Msg: "failed to send http request to upstream", Code: "upstream_http_err"}
	ErrUpstreamStatus    = &MetricsError{Msg: "upstream responded with non-2xx", Code: "upstream_http_status_err"}
	ErrUpstreamRead      = &MetricsError{Msg: "failed to read upstream response", Code: "upstream_response_err"}
	ErrClientWrite       = &MetricsError{Msg: "failed writing to client", Code: "client_write_err"}
)

type MetricsError struct {
	Msg  string
	Code string
}

func (m *MetricsError) Error() string {
	return m.String()
}

func (m *MetricsError) String() string {
	return m.Msg
}
