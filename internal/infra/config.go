package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string        `validate:"required"`
	Port               string        `validate:"required,numeric"`
	HTTPReadTimeout    time.Duration `validate:"gt=0"`
	HTTPWriteTimeout   time.Duration `validate:"gt=0"`
	HTTPIdleTimeout    time.Duration `validate:"gt=0"`
	RateLimitPerMin    int           `validate:"min=1"`
	CORSAllowedOrigins []string
	DefaultLocale      string `validate:"oneof=en ru kk"`
	GeoIPDBPath        string
	StoragePath        string `validate:"required"`

	EffectsBaseURL           string        `validate:"required,url"`
	EffectsRequestTimeout    time.Duration `validate:"gt=0"`
	EffectsProcessingTimeout time.Duration `validate:"gt=0"`
	EffectsPollInterval      time.Duration `validate:"gt=0"`
	EffectsPollMaxAttempts   int           `validate:"min=1"`
	EffectsPollInitialDelay  time.Duration `validate:"gte=0"`
	EffectsMaxUploadBytes    int64         `validate:"min=1"`
	EffectsSubmitEncoding    string        `validate:"oneof=form json"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 150)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		DefaultLocale:      strings.ToLower(getEnv("DEFAULT_LOCALE", "en")),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		StoragePath:        getEnv("STORAGE_PATH", "./downloads"),

		EffectsBaseURL:           strings.TrimRight(getEnv("EFFECTS_API_BASE_URL", "http://localhost:8000/api"), "/"),
		EffectsRequestTimeout:    time.Second * time.Duration(getEnvInt("EFFECTS_REQUEST_TIMEOUT_SECONDS", 10)),
		EffectsProcessingTimeout: time.Second * time.Duration(getEnvInt("EFFECTS_PROCESSING_TIMEOUT_SECONDS", 120)),
		EffectsPollInterval:      time.Millisecond * time.Duration(getEnvInt("EFFECTS_POLL_INTERVAL_MS", 3000)),
		EffectsPollMaxAttempts:   getEnvInt("EFFECTS_POLL_MAX_ATTEMPTS", 40),
		EffectsPollInitialDelay:  time.Millisecond * time.Duration(getEnvInt("EFFECTS_POLL_INITIAL_DELAY_MS", 1000)),
		EffectsMaxUploadBytes:    int64(getEnvInt("EFFECTS_MAX_UPLOAD_BYTES", 10<<20)),
		EffectsSubmitEncoding:    strings.ToLower(getEnv("EFFECTS_SUBMIT_ENCODING", "form")),
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, describeValidation(err)
	}

	return cfg, nil
}

// describeValidation names the first offending setting.
func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("config: %w", err)
	}
	fe := fieldErrs[0]
	return fmt.Errorf("config: %s is invalid (%s %s): got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
