package effects

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Transport {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	cfg := Config{BaseURL: ts.URL}
	for _, fn := range mutate {
		fn(&cfg)
	}
	tr, err := NewTransport(cfg)
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	return tr
}

func TestTransportNormalizesBodies(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields map[string]any
		wantText   string
		wantEmpty  bool
	}{
		{
			name:       "object",
			body:       `{"status":"completed","processed_image":"x"}`,
			wantFields: map[string]any{"status": "completed", "processed_image": "x"},
		},
		{
			name:       "double encoded object",
			body:       `"{\"status\":\"completed\",\"processed_image\":\"x\"}"`,
			wantFields: map[string]any{"status": "completed", "processed_image": "x"},
		},
		{
			name:     "plain text",
			body:     "accepted",
			wantText: "accepted",
		},
		{
			name:      "empty body",
			body:      "",
			wantEmpty: true,
		},
		{
			name:      "json null",
			body:      "null",
			wantEmpty: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			})
			resp, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/anything/"})
			if err != nil {
				t.Fatalf("Send error: %v", err)
			}
			if resp.Empty() != tc.wantEmpty {
				t.Fatalf("Empty() = %v, want %v", resp.Empty(), tc.wantEmpty)
			}
			if tc.wantFields != nil && !reflect.DeepEqual(resp.Fields(), tc.wantFields) {
				t.Fatalf("fields = %#v, want %#v", resp.Fields(), tc.wantFields)
			}
			if resp.Text != tc.wantText {
				t.Fatalf("text = %q, want %q", resp.Text, tc.wantText)
			}
		})
	}
}

func TestTransportDoubleEncodedMatchesNative(t *testing.T) {
	native := normalizeBody(http.StatusOK, []byte(`{"status":"completed","processed_image":"x"}`))
	wrapped := normalizeBody(http.StatusOK, []byte(`"{\"status\":\"completed\",\"processed_image\":\"x\"}"`))
	if !reflect.DeepEqual(native.Value, wrapped.Value) {
		t.Fatalf("double-encoded payload normalized to %#v, native to %#v", wrapped.Value, native.Value)
	}
}

func TestTransportUnparseableStringBecomesFailedStatus(t *testing.T) {
	resp := normalizeBody(http.StatusOK, []byte(`"{not json"`))
	fields := resp.Fields()
	if fields == nil {
		t.Fatalf("expected structured fallback, got %#v", resp)
	}
	if fields["status"] != "failed" {
		t.Fatalf("status = %v, want failed", fields["status"])
	}
	msg, _ := fields["error_message"].(string)
	if !strings.HasPrefix(msg, invalidFormatMessage) {
		t.Fatalf("error_message = %q, want diagnostic", msg)
	}
}

func TestTransportRejectedMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "error field", status: http.StatusBadRequest, body: `{"error":"effect_id is required"}`, want: "effect_id is required"},
		{name: "error with details", status: http.StatusInternalServerError, body: `{"error":"Image processing failed","details":"quota"}`, want: "Image processing failed: quota"},
		{name: "raw text", status: http.StatusBadGateway, body: "upstream down", want: "upstream down"},
		{name: "no body", status: http.StatusServiceUnavailable, body: "", want: "server returned status 503"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := tr.Send(context.Background(), Request{Operation: "upload", Method: http.MethodPost, Path: "/images/images/"})
			var terr *TransportError
			if !errors.As(err, &terr) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if terr.Kind != TransportRejected {
				t.Fatalf("kind = %s, want %s", terr.Kind, TransportRejected)
			}
			if terr.Status != tc.status {
				t.Fatalf("status = %d, want %d", terr.Status, tc.status)
			}
			if terr.Message != tc.want {
				t.Fatalf("message = %q, want %q", terr.Message, tc.want)
			}
		})
	}
}

func TestTransportDeadlines(t *testing.T) {
	release := make(chan struct{})
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = io.WriteString(w, `{"status":"processing"}`)
	}, func(c *Config) {
		c.RequestTimeout = 20 * time.Millisecond
		c.ProcessingTimeout = 5 * time.Second
	})

	_, err := tr.Send(context.Background(), Request{Operation: "list_effects", Path: "/effects/effects/"})
	var terr *TransportError
	if !errors.As(err, &terr) || terr.Kind != TransportTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	resp, err := tr.Send(context.Background(), Request{Operation: "job_status", Path: "/images/processed_images/1/", LongRunning: true})
	if err != nil {
		t.Fatalf("long-running call should outlive the short deadline: %v", err)
	}
	if resp.Fields()["status"] != "processing" {
		t.Fatalf("unexpected fields: %#v", resp.Fields())
	}
}

func TestTransportCallerCancellation(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := tr.Send(ctx, Request{Path: "/images/processed_images/1/", LongRunning: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTransportNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	tr, err := NewTransport(Config{BaseURL: base})
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	_, err = tr.Send(context.Background(), Request{Operation: "upload", Method: http.MethodPost, Path: "/images/images/"})
	var terr *TransportError
	if !errors.As(err, &terr) || terr.Kind != TransportNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestTransportSendsFormAndJSONBodies(t *testing.T) {
	var gotContentType, gotEffect string
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if strings.HasPrefix(gotContentType, "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			gotEffect = r.FormValue("effect_id")
		} else {
			body, _ := io.ReadAll(r.Body)
			gotEffect = string(body)
		}
		_, _ = io.WriteString(w, `{}`)
	})

	if _, err := tr.Send(context.Background(), Request{Method: http.MethodPost, Path: "/x/", Body: FormBody(map[string]string{"effect_id": "neon-glow"})}); err != nil {
		t.Fatalf("form send: %v", err)
	}
	if gotEffect != "neon-glow" {
		t.Fatalf("form effect_id = %q", gotEffect)
	}

	if _, err := tr.Send(context.Background(), Request{Method: http.MethodPost, Path: "/x/", Body: JSONBody(map[string]string{"effect_id": "neon-glow"})}); err != nil {
		t.Fatalf("json send: %v", err)
	}
	if gotContentType != "application/json" || gotEffect != `{"effect_id":"neon-glow"}` {
		t.Fatalf("json body = %q (%s)", gotEffect, gotContentType)
	}
}

func TestTransportFetchResolvesRelativeReferences(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/png; charset=binary")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer ts.Close()

	tr, err := NewTransport(Config{BaseURL: ts.URL + "/api"})
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	data, mediaType, err := tr.Fetch(context.Background(), "/media/processed/out.png")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if gotPath != "/media/processed/out.png" {
		t.Fatalf("path = %q", gotPath)
	}
	if mediaType != "image/png" || len(data) != 4 {
		t.Fatalf("unexpected download: %s %d bytes", mediaType, len(data))
	}

	if _, _, err := tr.Fetch(context.Background(), " "); err == nil {
		t.Fatalf("expected validation error for empty reference")
	}
}

func TestNewTransportRejectsInvalidBaseURL(t *testing.T) {
	if _, err := NewTransport(Config{BaseURL: "not a url"}); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}
