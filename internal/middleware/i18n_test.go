package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		country  string
		want     string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "KK")
				r.Header.Set("Accept-Language", "ru-RU")
			},
			country: "US",
			want:    "kk",
		},
		{
			name: "unsupported x-locale is ignored",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "de")
				r.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
			},
			want: "ru",
		},
		{
			name: "accept-language negotiated",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "fr-FR,kk;q=0.7")
			},
			want: "kk",
		},
		{
			name:    "country kz maps to kazakh",
			country: "KZ",
			want:    "kk",
		},
		{
			name:    "country ru maps to russian",
			country: "RU",
			want:    "ru",
		},
		{
			name:     "other country is english",
			country:  "US",
			fallback: "ru",
			want:     "en",
		},
		{
			name:     "configured fallback",
			fallback: "ru",
			want:     "ru",
		},
		{
			name: "default to en",
			want: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			got := detectLocale(req, tc.fallback, tc.country)
			if got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "kz")
				r.Header.Set("CF-IPCountry", "ru")
			},
			want: "KZ",
		},
		{
			name: "locale region fallback",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "ru-KZ")
			},
			want: "KZ",
		},
		{
			name: "accept-language region",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
			},
			want: "GB",
		},
		{
			name: "resolver fallback",
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					t.Fatalf("unexpected ip: %s", ip)
				}
				return "kz", nil
			},
			want: "KZ",
		},
		{
			name: "resolver error returns empty",
			resolver: func(ip string) (string, error) {
				return "", assertError("boom")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			got := ResolveCountry(req, tc.resolver)
			if got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestI18NMiddlewareStoresLocale(t *testing.T) {
	var gotLocale, gotCountry string
	h := I18N("ru", func(string) (string, error) { return "KZ", nil })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = LocaleFromContext(r.Context())
		gotCountry = CountryFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if gotLocale != "kk" || gotCountry != "KZ" {
		t.Fatalf("locale %q country %q, want kk KZ", gotLocale, gotCountry)
	}
	if rec.Header().Get("Content-Language") != "kk" {
		t.Fatalf("Content-Language = %q", rec.Header().Get("Content-Language"))
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != "en" {
		t.Fatalf("LocaleFromContext() default = %q, want %q", got, "en")
	}
	ctx = context.WithValue(ctx, LocaleKey, "ru")
	if got := LocaleFromContext(ctx); got != "ru" {
		t.Fatalf("LocaleFromContext() with value = %q, want %q", got, "ru")
	}
}
