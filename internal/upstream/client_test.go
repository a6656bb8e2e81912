package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", zap.NewNop().Sugar())
}

func TestFetchSendsHeadersAndBody(t *testing.T) {
	var gotPath, gotMethod string
	var gotHeader http.Header
	var gotBody map[string]string
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod, gotHeader = r.URL.Path, r.Method, r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"job":"1"}`))
	})

	res, err := cl.Fetch(context.Background(), Request{
		Op:        "generate",
		Method:    http.MethodPost,
		Path:      "/generate",
		APIKey:    "k1",
		RequestID: "req_1",
		Body:      map[string]string{"prompt": "hi"},
		Timeout:   time.Second,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.StatusCode != http.StatusCreated || string(res.Body) != `{"job":"1"}` {
		t.Fatalf("unexpected response %d %s", res.StatusCode, res.Body)
	}
	if gotPath != "/generate" || gotMethod != http.MethodPost {
		t.Fatalf("unexpected call %s %s", gotMethod, gotPath)
	}
	if gotBody["prompt"] != "hi" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	checks := map[string]string{
		"X-Api-Key":     "k1",
		"Authorization": "Bearer k1",
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"X-Request-Id":  "req_1",
	}
	for k, want := range checks {
		if got := gotHeader.Get(k); got != want {
			t.Fatalf("header %s = %q, want %q", k, got, want)
		}
	}
}

func TestFetchQuery(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" || r.URL.Query().Get("id") != "a b" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := cl.Fetch(context.Background(), Request{
		Op: "status", Path: "/status", APIKey: "k", Query: url.Values{"id": {"a b"}}, Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestFetchStatusError(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("rate limited"))
	})
	_, err := cl.Fetch(context.Background(), Request{Op: "status", Path: "/status", APIKey: "k", Timeout: time.Second})
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if serr.StatusCode != 500 || string(serr.Body) != "rate limited" {
		t.Fatalf("unexpected status error %d %q", serr.StatusCode, serr.Body)
	}
}

func TestFetchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	cl := NewClient(base, zap.NewNop().Sugar())
	_, err := cl.Fetch(context.Background(), Request{Op: "lyrics", Path: "/lyrics", APIKey: "k", Timeout: time.Second})
	var uerr *UnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if uerr.Op != "lyrics" {
		t.Fatalf("op = %q", uerr.Op)
	}
}

func TestFetchTimeout(t *testing.T) {
	done := make(chan struct{})
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	})
	defer close(done)

	_, err := cl.Fetch(context.Background(), Request{Op: "status", Path: "/status", APIKey: "k", Timeout: 50 * time.Millisecond})
	var uerr *UnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestStreamReturnsUnreadBody(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 100*1024)
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		for i := 0; i < len(payload); i += 10 * 1024 {
			_, _ = w.Write(payload[i : i+10*1024])
			w.(http.Flusher).Flush()
		}
	})

	res, err := cl.Stream(context.Background(), Request{Op: "stream", Path: "/stream", APIKey: "k", Timeout: time.Second})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer res.Body.Close()
	got, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %d bytes, want %d", len(got), len(payload))
	}
}

func TestStreamIdleTimerIsRearmed(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 4; i++ {
			_, _ = w.Write([]byte("x"))
			w.(http.Flusher).Flush()
			time.Sleep(60 * time.Millisecond)
		}
	})

	// Total duration exceeds the timeout, no single gap does
	res, err := cl.Stream(context.Background(), Request{Op: "stream", Path: "/stream", APIKey: "k", Timeout: 150 * time.Millisecond})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer res.Body.Close()
	got, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "xxxx" {
		t.Fatalf("got %q", got)
	}
}

func TestStreamStatusError(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"msg":"no track"}`))
	})
	_, err := cl.Stream(context.Background(), Request{Op: "stream", Path: "/stream", APIKey: "k", Timeout: time.Second})
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if serr.StatusCode != 404 || serr.BodyContentType() != "application/json" {
		t.Fatalf("unexpected %d %q", serr.StatusCode, serr.BodyContentType())
	}
}

func TestStreamSlowConsumerKeepsStream(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 3; i++ {
			_, _ = w.Write([]byte("y"))
			w.(http.Flusher).Flush()
			time.Sleep(10 * time.Millisecond)
		}
	})

	res, err := cl.Stream(context.Background(), Request{Op: "stream", Path: "/stream", APIKey: "k", Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer res.Body.Close()

	// Each pause between reads is longer than the timeout
	var got []byte
	buf := make([]byte, 1)
	for {
		n, err := res.Body.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read after %q: %v", got, err)
		}
		time.Sleep(120 * time.Millisecond)
	}
	if string(got) != "yyy" {
		t.Fatalf("got %q", got)
	}
}
