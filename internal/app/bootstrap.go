// Package app wires configuration and shared infrastructure into the
// effects client used by both binaries.
package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"trendrider/internal/effects"
	"trendrider/internal/infra"
)

// EffectsConfig maps the process configuration onto effects.Config.
func EffectsConfig(cfg *infra.Config, logger infra.Logger, metrics *effects.Metrics) effects.Config {
	initialDelay := cfg.EffectsPollInitialDelay
	if initialDelay == 0 {
		// effects.Config treats zero as "use the default".
		initialDelay = -1
	}
	l := logger.With().Str("component", "effects").Logger()
	return effects.Config{
		BaseURL:           cfg.EffectsBaseURL,
		RequestTimeout:    cfg.EffectsRequestTimeout,
		ProcessingTimeout: cfg.EffectsProcessingTimeout,
		PollInterval:      cfg.EffectsPollInterval,
		PollInitialDelay:  initialDelay,
		PollMaxAttempts:   cfg.EffectsPollMaxAttempts,
		MaxUploadBytes:    cfg.EffectsMaxUploadBytes,
		SubmitEncoding:    cfg.EffectsSubmitEncoding,
		Logger:            &l,
		Metrics:           metrics,
	}
}

// NewEffectsClient builds an effects client. When reg is nil no metrics are
// recorded.
func NewEffectsClient(cfg *infra.Config, logger infra.Logger, reg prometheus.Registerer, opts ...effects.PollerOption) (*effects.Client, error) {
	var metrics *effects.Metrics
	if reg != nil {
		metrics = effects.NewMetrics(reg)
	}
	return effects.New(EffectsConfig(cfg, logger, metrics), opts...)
}
