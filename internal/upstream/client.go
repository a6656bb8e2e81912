// Package upstream talks to the Suno API. Every call carries the caller's key
// in both the x-api-key and bearer schemes.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"suno-relay/internal/metrics"
	"suno-relay/internal/shared"

	"go.uber.org/zap"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        *zap.SugaredLogger
}

// Request describes one upstream call. Path is appended to the base url.
type Request struct {
	Op        string
	Method    string
	Path      string
	APIKey    string
	RequestID string
	Query     url.Values
	Body      any
	Timeout   time.Duration
}

// Response is a fully buffered upstream answer
type Response struct {
	StatusCode int
	Body       []byte
}

// StreamResponse holds an unread upstream body. Callers must Close it.
type StreamResponse struct {
	Body io.ReadCloser
}

func NewClient(baseURL string, log *zap.SugaredLogger) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: shared.DialTimeout,
		}).DialContext,
		TLSHandshakeTimeout: shared.TLSHandshakeTimeout,
		DisableKeepAlives:   false,
	}
	// No client wide timeout, every request carries its own deadline
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Transport: tr},
		Log:        log,
	}
}

// Headers builds the auth and content headers sent with every call
func Headers(apiKey string) map[string]string {
	return map[string]string{
		"x-api-key":     apiKey,
		"Authorization": fmt.Sprintf("Bearer %s", apiKey),
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
}

func (cl *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := cl.BaseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed encoding upstream body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	r, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed building request: %w", err)
	}
	for key, value := range Headers(req.APIKey) {
		r.Header.Set(key, value)
	}
	if req.RequestID != "" {
		r.Header.Set("X-Request-ID", req.RequestID)
	}
	return r, nil
}

func (cl *Client) do(r *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	res, err := cl.HTTPClient.Do(r)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(op, shared.ErrUpstreamTransport.Code).Inc()
		metrics.UpstreamDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, &UnavailableError{Op: op, Err: err}
	}
	metrics.UpstreamDuration.WithLabelValues(op, fmt.Sprintf("%d", res.StatusCode)).Observe(time.Since(start).Seconds())
	return res, nil
}

func (cl *Client) statusError(op string, res *http.Response) error {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		cl.Log.Warnw("Failed to read upstream error body", "operation", op, "error", err)
	}
	metrics.UpstreamErrors.WithLabelValues(op, shared.ErrUpstreamStatus.Code).Inc()
	return &StatusError{
		Op:          op,
		StatusCode:  res.StatusCode,
		Body:        body,
		ContentType: res.Header.Get("Content-Type"),
	}
}

func (cl *Client) closeBody(op string, res *http.Response) {
	if res == nil || res.Body == nil {
		return
	}
	if err := res.Body.Close(); err != nil {
		cl.Log.Warnw("Failed to close upstream body", "operation", op, "error", err)
	}
}

// Fetch performs the call and buffers the whole body before returning. The
// timeout covers the body read as well.
func (cl *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	rctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	r, err := cl.newRequest(rctx, req)
	if err != nil {
		return nil, err
	}
	res, err := cl.do(r, req.Op)
	if err != nil {
		return nil, err
	}
	defer cl.closeBody(req.Op, res)

	if !isSuccess(res.StatusCode) {
		return nil, cl.statusError(req.Op, res)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(req.Op, shared.ErrUpstreamRead.Code).Inc()
		return nil, &UnavailableError{Op: req.Op, Err: err}
	}
	return &Response{
		StatusCode: res.StatusCode,
		Body:       body,
	}, nil
}

// Stream performs the call and hands back the unread body. The timeout is an
// idle timer that only runs while waiting on the upstream: until the headers
// arrive and then inside each Read. Time the caller spends between reads, such
// as writing to a slow client, does not count.
func (cl *Client) Stream(ctx context.Context, req Request) (*StreamResponse, error) {
	rctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(req.Timeout, cancel)

	r, err := cl.newRequest(rctx, req)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, err
	}
	res, err := cl.do(r, req.Op)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, err
	}

	if !isSuccess(res.StatusCode) {
		defer func() {
			timer.Stop()
			cancel()
		}()
		defer cl.closeBody(req.Op, res)
		return nil, cl.statusError(req.Op, res)
	}

	return &StreamResponse{
		Body: &idleBody{
			body:    res.Body,
			timer:   timer,
			timeout: req.Timeout,
			cancel:  cancel,
		},
	}, nil
}

type idleBody struct {
	body    io.ReadCloser
	timer   *time.Timer
	timeout time.Duration
	cancel  context.CancelFunc
}

func (b *idleBody) Read(p []byte) (int, error) {
	b.timer.Reset(b.timeout)
	n, err := b.body.Read(p)
	b.timer.Stop()
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	err := b.body.Close()
	b.cancel()
	return err
}

// IsTimeout reports whether err came from an expired deadline
func IsTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
