package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"trendrider/internal/http/handlers"
	"trendrider/internal/infra"
	"trendrider/internal/middleware"
)

// Options configures the gateway middleware stack.
type Options struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", app.Metrics())

	r.Route("/v1/effects", func(r chi.Router) {
		r.Get("/", app.ListEffects)
		r.Get("/categories", app.ListCategories)
	})

	limit := opts.RateLimitPerMin
	if limit <= 0 {
		limit = 30
	}
	r.With(middleware.RateLimit(limit, time.Minute, app.RateLimited)).
		Post("/v1/images/apply", app.ApplyEffect)

	r.Route("/v1/jobs/{id}", func(r chi.Router) {
		r.Get("/", app.JobStatus)
		r.Get("/await", app.AwaitJob)
	})

	return r
}
