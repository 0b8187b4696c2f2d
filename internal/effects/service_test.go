package effects

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
)

// fakeService scripts the remote effects service. Status bodies are served
// in order; the last one repeats.
type fakeService struct {
	t *testing.T

	mu             sync.Mutex
	uploadBody     string
	submitBody     string
	statusBodies   []string
	uploads        int
	submits        int
	statusCalls    map[string]int
	lastEffectID   string
	lastAssetID    string
	lastImageType  string
	lastImageBytes int
	lastCategory   string
	effectsBody    string
	categoriesBody string
}

func newFakeService(t *testing.T) *fakeService {
	return &fakeService{
		t:           t,
		uploadBody:  `{"id":"asset-1","original_image":"/media/uploads/a.png"}`,
		submitBody:  `{"id":"job-1","status":"processing"}`,
		statusCalls: map[string]int{},
	}
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	switch {
	case r.Method == http.MethodPost && path == "/images/images/":
		f.uploads++
		file, header, err := r.FormFile("image")
		if err != nil {
			f.t.Errorf("upload without image field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		f.lastImageBytes = len(data)
		f.lastImageType = header.Header.Get("Content-Type")
		_, _ = io.WriteString(w, f.uploadBody)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/apply_effect/"):
		f.submits++
		f.lastAssetID = strings.TrimSuffix(strings.TrimPrefix(path, "/images/images/"), "/apply_effect/")
		f.lastEffectID = r.FormValue("effect_id")
		_, _ = io.WriteString(w, f.submitBody)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/images/processed_images/"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/images/processed_images/"), "/")
		f.statusCalls[id]++
		n := f.statusCalls[id]
		if len(f.statusBodies) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		idx := n - 1
		if idx >= len(f.statusBodies) {
			idx = len(f.statusBodies) - 1
		}
		_, _ = io.WriteString(w, f.statusBodies[idx])
	case r.Method == http.MethodGet && path == "/effects/effects/":
		f.lastCategory = r.URL.Query().Get("category")
		_, _ = io.WriteString(w, f.effectsBody)
	case r.Method == http.MethodGet && path == "/effects/categories/":
		_, _ = io.WriteString(w, f.categoriesBody)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
	}
}

func (f *fakeService) polls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[jobID]
}

func (f *fakeService) setStatuses(bodies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusBodies = bodies
}

// waitRecorder replaces real sleeping in poll loops.
type waitRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *waitRecorder) total() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	var sum time.Duration
	for _, d := range w.waits {
		sum += d
	}
	return sum
}

func newTestServer(t *testing.T, h http.Handler) string {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL
}

func newTestClient(t *testing.T, svc *fakeService, mutate ...func(*Config)) (*Client, *waitRecorder) {
	t.Helper()
	cfg := Config{BaseURL: newTestServer(t, svc) + "/api"}
	for _, fn := range mutate {
		fn(&cfg)
	}
	rec := &waitRecorder{}
	client, err := New(cfg, WithWaitFunc(rec.wait))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, rec
}

func repeat(body string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = body
	}
	return out
}
