package effects

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trendrider/internal/infra"
)

const (
	DefaultBaseURL           = "http://localhost:8000/api"
	DefaultRequestTimeout    = 10 * time.Second
	DefaultProcessingTimeout = 120 * time.Second
	DefaultPollInterval      = 3000 * time.Millisecond
	DefaultPollMaxAttempts   = 40
	DefaultPollInitialDelay  = 1000 * time.Millisecond
	DefaultMaxUploadBytes    = 10 << 20

	SubmitEncodingForm = "form"
	SubmitEncodingJSON = "json"

	idPlaceholder = "{id}"
)

// Endpoints holds the remote paths relative to Config.BaseURL. Paths that
// address a single resource contain the {id} placeholder.
type Endpoints struct {
	Upload     string
	Apply      string
	Status     string
	Categories string
	Effects    string
}

// DefaultEndpoints matches the effects service routes.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Upload:     "/images/images/",
		Apply:      "/images/images/{id}/apply_effect/",
		Status:     "/images/processed_images/{id}/",
		Categories: "/effects/categories/",
		Effects:    "/effects/effects/",
	}
}

// Config is the immutable configuration shared by every component of a
// Client. The zero value of each field selects its default; a negative
// PollInitialDelay disables the delay before the first status query.
type Config struct {
	BaseURL           string
	Endpoints         Endpoints
	RequestTimeout    time.Duration
	ProcessingTimeout time.Duration
	PollInterval      time.Duration
	PollInitialDelay  time.Duration
	PollMaxAttempts   int
	MaxUploadBytes    int64
	SubmitEncoding    string
	UserAgent         string
	HTTPClient        *http.Client
	Logger            *infra.Logger
	Metrics           *Metrics

	defaulted bool
}

func (c Config) withDefaults() Config {
	if c.defaulted {
		return c
	}
	c.defaulted = true
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	def := DefaultEndpoints()
	if c.Endpoints.Upload == "" {
		c.Endpoints.Upload = def.Upload
	}
	if c.Endpoints.Apply == "" {
		c.Endpoints.Apply = def.Apply
	}
	if c.Endpoints.Status == "" {
		c.Endpoints.Status = def.Status
	}
	if c.Endpoints.Categories == "" {
		c.Endpoints.Categories = def.Categories
	}
	if c.Endpoints.Effects == "" {
		c.Endpoints.Effects = def.Effects
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = DefaultProcessingTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	switch {
	case c.PollInitialDelay == 0:
		c.PollInitialDelay = DefaultPollInitialDelay
	case c.PollInitialDelay < 0:
		c.PollInitialDelay = 0
	}
	if c.PollMaxAttempts <= 0 {
		c.PollMaxAttempts = DefaultPollMaxAttempts
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	switch strings.ToLower(strings.TrimSpace(c.SubmitEncoding)) {
	case SubmitEncodingJSON:
		c.SubmitEncoding = SubmitEncodingJSON
	default:
		c.SubmitEncoding = SubmitEncodingForm
	}
	if c.UserAgent == "" {
		c.UserAgent = "trendrider-effects/1"
	}
	if c.HTTPClient == nil {
		// Deadlines are applied per call through the request context.
		c.HTTPClient = &http.Client{}
	}
	if c.Logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		c.Logger = &l
	}
	return c
}

// resourcePath substitutes an escaped identifier into an endpoint template.
func resourcePath(template, id string) string {
	return strings.ReplaceAll(template, idPlaceholder, url.PathEscape(id))
}
