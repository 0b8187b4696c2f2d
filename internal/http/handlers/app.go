package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"trendrider/internal/effects"
	"trendrider/internal/i18n"
	"trendrider/internal/infra"
	"trendrider/internal/middleware"
)

// EffectsService is the part of *effects.Client the gateway needs.
type EffectsService interface {
	Apply(ctx context.Context, asset effects.Asset, effectID string) (*effects.JobResult, error)
	Status(ctx context.Context, jobID string) (*effects.Job, error)
	AwaitCompletion(ctx context.Context, jobID string) (*effects.JobResult, error)
	Categories(ctx context.Context) ([]effects.Category, error)
	Effects(ctx context.Context, category string) ([]effects.Effect, error)
}

type App struct {
	Effects        EffectsService
	Logger         infra.Logger
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64
}

func NewApp(svc EffectsService, logger infra.Logger, gatherer prometheus.Gatherer, maxUploadBytes int64) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = effects.DefaultMaxUploadBytes
	}
	return &App{Effects: svc, Logger: logger, Gatherer: gatherer, MaxUploadBytes: maxUploadBytes}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// error writes a localized error body. key is an i18n message key.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, key string, args ...any) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, status, errorResponse{Error: i18n.Sprintf(locale, key, args...), Code: code})
}

// RateLimited answers requests rejected by the rate limiter.
func (a *App) RateLimited(w http.ResponseWriter, r *http.Request) {
	a.error(w, r, http.StatusTooManyRequests, "rate_limited", i18n.MsgRateLimited)
}
