// Package relay validates relay input and turns it into upstream calls
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"suno-relay/internal/shared"
	"suno-relay/internal/upstream"

	"go.uber.org/zap"
)

// Upstream operations, also used as metric labels
const (
	OpGenerate = "generate"
	OpStatus   = "status"
	OpLyrics   = "lyrics"
	OpStream   = "stream"
	OpDownload = "download"
)

var routes = map[string]string{
	OpGenerate: "/generate",
	OpStatus:   "/status",
	OpLyrics:   "/lyrics",
	OpStream:   "/stream",
	OpDownload: "/download",
}

var timeouts = map[string]time.Duration{
	OpGenerate: shared.GenerateTimeout,
	OpStatus:   shared.MetadataTimeout,
	OpLyrics:   shared.MetadataTimeout,
	OpStream:   shared.StreamTimeout,
	OpDownload: shared.DownloadTimeout,
}

type Upstream interface {
	Fetch(ctx context.Context, req upstream.Request) (*upstream.Response, error)
	Stream(ctx context.Context, req upstream.Request) (*upstream.StreamResponse, error)
}

type RelayHandler struct {
	Upstream Upstream
	Log      *zap.SugaredLogger
}

func NewRelayHandler(up Upstream, log *zap.SugaredLogger) *RelayHandler {
	return &RelayHandler{Upstream: up, Log: log}
}

// Caller identifies who is asking, for auth and tracing
type Caller struct {
	APIKey    string
	RequestID string
}

// ParseGenerateBody validates a POST /generate body and builds the payload
// that gets forwarded. A JSON null body is treated as an empty object.
func ParseGenerateBody(raw []byte) (*shared.GeneratePayload, error) {
	var body shared.GenerateBody
	d := json.NewDecoder(bytes.NewReader(raw))
	if err := d.Decode(&body); err != nil {
		return nil, shared.ErrInvalidJSON
	}
	if d.More() {
		return nil, shared.ErrInvalidJSON
	}

	prompt := strings.TrimSpace(body.Prompt)
	model := strings.TrimSpace(body.Model)
	callbackURL := strings.TrimSpace(body.CallbackURL)

	if prompt == "" {
		return nil, shared.ErrPromptRequired
	}
	if utf8.RuneCountInString(prompt) > shared.MaxPromptLength {
		return nil, shared.ErrPromptTooLong
	}
	if model == "" {
		return nil, shared.ErrModelRequired
	}
	return &shared.GeneratePayload{
		Prompt:      prompt,
		Model:       model,
		CallbackURL: callbackURL,
	}, nil
}

func (rh *RelayHandler) request(op string, caller Caller) upstream.Request {
	return upstream.Request{
		Op:        op,
		Method:    http.MethodGet,
		Path:      routes[op],
		APIKey:    caller.APIKey,
		RequestID: caller.RequestID,
		Timeout:   timeouts[op],
	}
}

func (rh *RelayHandler) lookupRequest(op string, caller Caller, id string) (upstream.Request, error) {
	if strings.TrimSpace(id) == "" {
		return upstream.Request{}, shared.ErrIDRequired
	}
	req := rh.request(op, caller)
	req.Query = url.Values{"id": {id}}
	return req, nil
}

// Generate forwards a validated generation request
func (rh *RelayHandler) Generate(ctx context.Context, caller Caller, raw []byte) (*upstream.Response, error) {
	payload, err := ParseGenerateBody(raw)
	if err != nil {
		return nil, err
	}
	req := rh.request(OpGenerate, caller)
	req.Method = http.MethodPost
	req.Body = payload
	return rh.Upstream.Fetch(ctx, req)
}

// Lookup serves the JSON lookups keyed by id: status and lyrics
func (rh *RelayHandler) Lookup(ctx context.Context, op string, caller Caller, id string) (*upstream.Response, error) {
	req, err := rh.lookupRequest(op, caller, id)
	if err != nil {
		return nil, err
	}
	return rh.Upstream.Fetch(ctx, req)
}

// Stream opens the upstream audio stream without reading it
func (rh *RelayHandler) Stream(ctx context.Context, caller Caller, id string) (*upstream.StreamResponse, error) {
	req, err := rh.lookupRequest(OpStream, caller, id)
	if err != nil {
		return nil, err
	}
	return rh.Upstream.Stream(ctx, req)
}

// Download buffers the whole audio file
func (rh *RelayHandler) Download(ctx context.Context, caller Caller, id string) (*upstream.Response, error) {
	req, err := rh.lookupRequest(OpDownload, caller, id)
	if err != nil {
		return nil, err
	}
	return rh.Upstream.Fetch(ctx, req)
}

// DownloadFilename is the attachment name for a track id
func DownloadFilename(id string) string {
	return shared.DownloadFilePrefix + id + shared.DownloadFileSuffix
}
