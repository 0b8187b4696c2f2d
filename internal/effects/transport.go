package effects

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"trendrider/internal/infra"
)

const maxResponseBytes = 32 << 20

// Payload is a request body.
type Payload interface {
	encode() (io.Reader, string, error)
}

type jsonPayload struct {
	value any
}

// JSONBody encodes v as application/json.
func JSONBody(v any) Payload {
	return jsonPayload{value: v}
}

func (p jsonPayload) encode() (io.Reader, string, error) {
	body, err := json.Marshal(p.value)
	if err != nil {
		return nil, "", fmt.Errorf("effects: encode request: %w", err)
	}
	return bytes.NewReader(body), "application/json", nil
}

// FormFile is one file part of a multipart body.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

type formPayload struct {
	fields map[string]string
	files  []FormFile
}

// FormBody encodes fields and files as multipart/form-data.
func FormBody(fields map[string]string, files ...FormFile) Payload {
	return formPayload{fields: fields, files: files}
}

func (p formPayload) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(p.fields))
	for k := range p.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, p.fields[k]); err != nil {
			return nil, "", fmt.Errorf("effects: write form field %s: %w", k, err)
		}
	}
	for _, f := range p.files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("effects: create form file %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("effects: write form file %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("effects: close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Request describes a single call to the effects service.
type Request struct {
	// Operation names the call in logs, metrics and errors.
	Operation   string
	Method      string
	Path        string
	Query       url.Values
	Body        Payload
	LongRunning bool
}

// Transport executes single deadline-bounded calls and normalizes their
// responses. It never retries.
type Transport struct {
	baseURL           string
	httpClient        *http.Client
	requestTimeout    time.Duration
	processingTimeout time.Duration
	userAgent         string
	logger            *infra.Logger
	metrics           *Metrics
}

// NewTransport builds a Transport from cfg.
func NewTransport(cfg Config) (*Transport, error) {
	cfg = cfg.withDefaults()
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("effects: invalid base url %q", cfg.BaseURL)
	}
	return &Transport{
		baseURL:           cfg.BaseURL,
		httpClient:        cfg.HTTPClient,
		requestTimeout:    cfg.RequestTimeout,
		processingTimeout: cfg.ProcessingTimeout,
		userAgent:         cfg.UserAgent,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
	}, nil
}

// Send performs req. Non-2xx responses, deadline expiry and network failures
// are returned as *TransportError; cancellation of ctx is returned as-is.
func (t *Transport) Send(ctx context.Context, req Request) (*Response, error) {
	op := req.Operation
	if op == "" {
		op = strings.ToLower(req.Method) + " " + req.Path
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType string
	)
	if req.Body != nil {
		var err error
		body, contentType, err = req.Body.encode()
		if err != nil {
			return nil, err
		}
	}

	endpoint := t.resolve(req.Path)
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	callCtx, cancel := context.WithTimeout(ctx, t.deadline(req.LongRunning))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("effects: build %s request: %w", op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	status, raw, err := t.do(ctx, callCtx, op, httpReq)
	elapsed := time.Since(start)
	if err != nil {
		t.metrics.observeRequest(op, outcomeOf(err), elapsed)
		t.logger.Debug().Err(err).Str("operation", op).Dur("elapsed", elapsed).Msg("effects: request failed")
		return nil, err
	}
	if status < 200 || status >= 300 {
		terr := &TransportError{
			Kind:      TransportRejected,
			Operation: op,
			Status:    status,
			Message:   rejectionMessage(status, raw),
		}
		t.metrics.observeRequest(op, string(TransportRejected), elapsed)
		t.logger.Debug().Str("operation", op).Int("status", status).Str("message", terr.Message).Msg("effects: request rejected")
		return nil, terr
	}

	t.metrics.observeRequest(op, "ok", elapsed)
	t.logger.Debug().Str("operation", op).Int("status", status).Dur("elapsed", elapsed).Msg("effects: request completed")
	return normalizeBody(status, raw), nil
}

// Fetch downloads the asset at ref, which is either an absolute URL or a
// path on the service origin. It uses the long deadline.
func (t *Transport) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	const op = "download"
	target, err := t.resolveRef(ref)
	if err != nil {
		return nil, "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, t.processingTimeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("effects: build download request: %w", err)
	}
	httpReq.Header.Set("User-Agent", t.userAgent)

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		terr := t.classify(ctx, callCtx, op, err)
		t.metrics.observeRequest(op, outcomeOf(terr), time.Since(start))
		return nil, "", terr
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		terr := t.classify(ctx, callCtx, op, err)
		t.metrics.observeRequest(op, outcomeOf(terr), time.Since(start))
		return nil, "", terr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.metrics.observeRequest(op, string(TransportRejected), time.Since(start))
		return nil, "", &TransportError{
			Kind:      TransportRejected,
			Operation: op,
			Status:    resp.StatusCode,
			Message:   rejectionMessage(resp.StatusCode, data),
		}
	}
	t.metrics.observeRequest(op, "ok", time.Since(start))
	mediaType := resp.Header.Get("Content-Type")
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return data, strings.TrimSpace(mediaType), nil
}

func (t *Transport) do(ctx, callCtx context.Context, op string, req *http.Request) (int, []byte, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, t.classify(ctx, callCtx, op, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, t.classify(ctx, callCtx, op, err)
	}
	return resp.StatusCode, raw, nil
}

// classify separates caller cancellation from our own deadline and from
// network failures.
func (t *Transport) classify(ctx, callCtx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &TransportError{Kind: TransportTimeout, Operation: op, Err: err}
	}
	return &TransportError{Kind: TransportNetwork, Operation: op, Err: err}
}

func (t *Transport) deadline(longRunning bool) time.Duration {
	if longRunning {
		return t.processingTimeout
	}
	return t.requestTimeout
}

func (t *Transport) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return t.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (t *Transport) resolveRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", &ValidationError{Field: "asset reference", Message: "is required"}
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", &ValidationError{Field: "asset reference", Message: err.Error()}
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	base, err := url.Parse(t.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("effects: parse base url: %w", err)
	}
	return base.ResolveReference(parsed).String(), nil
}

func outcomeOf(err error) string {
	var terr *TransportError
	if errors.As(err, &terr) {
		return string(terr.Kind)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}
