package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"suno-relay/internal/shared"
	"suno-relay/internal/upstream"

	"go.uber.org/zap"
)

type fakeUpstream struct {
	calls []upstream.Request
}

func (f *fakeUpstream) Fetch(_ context.Context, req upstream.Request) (*upstream.Response, error) {
	f.calls = append(f.calls, req)
	return &upstream.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
}

func (f *fakeUpstream) Stream(_ context.Context, req upstream.Request) (*upstream.StreamResponse, error) {
	f.calls = append(f.calls, req)
	return &upstream.StreamResponse{}, nil
}

func newTestHandler() (*RelayHandler, *fakeUpstream) {
	up := &fakeUpstream{}
	return NewRelayHandler(up, zap.NewNop().Sugar()), up
}

func TestParseGenerateBody(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		err  error
	}{
		{"valid", `{"prompt": "song", "model": "v4"}`, nil},
		{"invalid json", `{"prompt": `, shared.ErrInvalidJSON},
		{"empty body", ``, shared.ErrInvalidJSON},
		{"wrong type", `{"prompt": 5, "model": "v4"}`, shared.ErrInvalidJSON},
		{"null body", `null`, shared.ErrPromptRequired},
		{"blank prompt", `{"prompt": "   ", "model": "v4"}`, shared.ErrPromptRequired},
		{"missing model", `{"prompt": "song"}`, shared.ErrModelRequired},
		{"blank model", `{"prompt": "song", "model": " "}`, shared.ErrModelRequired},
		{"501 chars", `{"prompt": "` + strings.Repeat("a", 501) + `", "model": "v4"}`, shared.ErrPromptTooLong},
		{"500 chars", `{"prompt": "` + strings.Repeat("a", 500) + `", "model": "v4"}`, nil},
		{"500 runes", `{"prompt": "` + strings.Repeat("é", 500) + `", "model": "v4"}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGenerateBody([]byte(tc.raw))
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
		})
	}
}

func TestParseGenerateBodyTrimsAndDropsBlankCallback(t *testing.T) {
	p, err := ParseGenerateBody([]byte(`{"prompt": " song ", "model": " v4 ", "callback_url": "  "}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Prompt != "song" || p.Model != "v4" || p.CallbackURL != "" {
		t.Fatalf("unexpected payload %+v", p)
	}

	p, err = ParseGenerateBody([]byte(`{"prompt": "song", "model": "v4", "callback_url": "https://cb.example/x"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.CallbackURL != "https://cb.example/x" {
		t.Fatalf("callback url = %q", p.CallbackURL)
	}
}

func TestGenerateBuildsPost(t *testing.T) {
	rh, up := newTestHandler()
	_, err := rh.Generate(context.Background(), Caller{APIKey: "k", RequestID: "r"}, []byte(`{"prompt": "p", "model": "m"}`))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(up.calls) != 1 {
		t.Fatalf("calls = %d", len(up.calls))
	}
	req := up.calls[0]
	if req.Method != http.MethodPost || req.Path != "/generate" || req.Timeout != shared.GenerateTimeout {
		t.Fatalf("unexpected request %+v", req)
	}
	payload, ok := req.Body.(*shared.GeneratePayload)
	if !ok || payload.Prompt != "p" || payload.Model != "m" {
		t.Fatalf("unexpected body %#v", req.Body)
	}
}

func TestInvalidInputNeverReachesUpstream(t *testing.T) {
	rh, up := newTestHandler()
	ctx := context.Background()
	caller := Caller{APIKey: "k"}

	if _, err := rh.Generate(ctx, caller, []byte(`{"model": "m"}`)); !errors.Is(err, shared.ErrPromptRequired) {
		t.Fatalf("generate err = %v", err)
	}
	if _, err := rh.Lookup(ctx, OpStatus, caller, ""); !errors.Is(err, shared.ErrIDRequired) {
		t.Fatalf("status err = %v", err)
	}
	if _, err := rh.Stream(ctx, caller, " "); !errors.Is(err, shared.ErrIDRequired) {
		t.Fatalf("stream err = %v", err)
	}
	if _, err := rh.Download(ctx, caller, ""); !errors.Is(err, shared.ErrIDRequired) {
		t.Fatalf("download err = %v", err)
	}
	if len(up.calls) != 0 {
		t.Fatalf("upstream called %d times", len(up.calls))
	}
}

func TestLookupRequests(t *testing.T) {
	rh, up := newTestHandler()
	ctx := context.Background()
	caller := Caller{APIKey: "k"}

	_, _ = rh.Lookup(ctx, OpStatus, caller, "s1")
	_, _ = rh.Lookup(ctx, OpLyrics, caller, "l1")
	_, _ = rh.Stream(ctx, caller, "t1")
	_, _ = rh.Download(ctx, caller, "d1")

	want := []struct {
		path string
		id   string
	}{
		{"/status", "s1"}, {"/lyrics", "l1"}, {"/stream", "t1"}, {"/download", "d1"},
	}
	if len(up.calls) != len(want) {
		t.Fatalf("calls = %d", len(up.calls))
	}
	for i, w := range want {
		got := up.calls[i]
		if got.Path != w.path || got.Query.Get("id") != w.id || got.Method != http.MethodGet {
			t.Fatalf("call %d = %+v", i, got)
		}
	}
	if up.calls[3].Timeout != shared.DownloadTimeout || up.calls[0].Timeout != shared.MetadataTimeout {
		t.Fatalf("unexpected timeouts")
	}
}

func TestDownloadFilename(t *testing.T) {
	if got := DownloadFilename("abc"); got != "suno-abc.mp3" {
		t.Fatalf("filename = %q", got)
	}
}
