package effects

import (
	"context"
	"net/http"
	"strings"
	"time"

	"trendrider/internal/infra"
)

const (
	timeoutMessage       = "processing is taking longer than expected"
	remoteFailureMessage = "image processing failed"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poller waits for submitted jobs to reach a terminal state by querying
// their status at a fixed interval. A Poller holds no per-job state, so one
// instance can await any number of jobs concurrently.
type Poller struct {
	transport    *Transport
	statusPath   string
	interval     time.Duration
	initialDelay time.Duration
	maxAttempts  int
	wait         WaitFunc
	logger       *infra.Logger
	metrics      *Metrics
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithWaitFunc replaces the timer used between attempts.
func WithWaitFunc(fn WaitFunc) PollerOption {
	return func(p *Poller) {
		if fn != nil {
			p.wait = fn
		}
	}
}

// NewPoller builds a Poller from cfg.
func NewPoller(transport *Transport, cfg Config, opts ...PollerOption) *Poller {
	cfg = cfg.withDefaults()
	p := &Poller{
		transport:    transport,
		statusPath:   cfg.Endpoints.Status,
		interval:     cfg.PollInterval,
		initialDelay: cfg.PollInitialDelay,
		maxAttempts:  cfg.PollMaxAttempts,
		wait:         sleep,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Status performs a single status query.
func (p *Poller) Status(ctx context.Context, jobID string) (*Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, &ValidationError{Field: "job id", Message: "is required"}
	}
	return p.query(ctx, jobID, 1)
}

// AwaitCompletion polls jobID until it completes, fails, or the attempt
// budget runs out. A completed job resolves to its result; every other
// outcome is an error: *PollError for empty, failed and timed-out jobs, the
// transport error when a status query fails, or ctx.Err() on cancellation.
func (p *Poller) AwaitCompletion(ctx context.Context, jobID string) (*JobResult, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, &ValidationError{Field: "job id", Message: "is required"}
	}
	log := p.logger.With().Str("job_id", jobID).Logger()

	if err := p.wait(ctx, p.initialDelay); err != nil {
		return nil, err
	}

	attempt := 0
	for {
		attempt++
		if attempt > p.maxAttempts {
			queries := attempt - 1
			p.metrics.observeJob(string(StatusTimedOut), queries)
			log.Warn().Int("attempts", queries).Msg("effects: job timed out")
			return nil, &PollError{Kind: PollTimeout, JobID: jobID, Attempts: queries, Message: timeoutMessage}
		}

		job, err := p.query(ctx, jobID, attempt)
		if err != nil {
			p.metrics.observeJob(outcomeOf(err), attempt)
			log.Warn().Err(err).Int("attempt", attempt).Msg("effects: poll failed")
			return nil, err
		}
		log.Debug().Int("attempt", attempt).Str("status", job.RawStatus).Msg("effects: polled job")

		switch job.Status {
		case StatusCompleted:
			p.metrics.observeJob(string(StatusCompleted), attempt)
			result := job.result(attempt)
			if result.ResultRef() == "" {
				log.Warn().Int("attempt", attempt).Msg("effects: completed job carries no image reference")
			}
			log.Info().Int("attempts", attempt).Str("result", result.ResultRef()).Msg("effects: job completed")
			return result, nil
		case StatusFailed:
			p.metrics.observeJob(string(StatusFailed), attempt)
			msg := job.ErrorMessage
			if msg == "" {
				msg = remoteFailureMessage
			}
			log.Warn().Int("attempt", attempt).Str("error_message", msg).Msg("effects: job failed")
			return nil, &PollError{Kind: PollRemote, JobID: jobID, Attempts: attempt, Message: msg}
		}

		// The next iteration would only report the timeout.
		if attempt >= p.maxAttempts {
			continue
		}
		if err := p.wait(ctx, p.interval); err != nil {
			return nil, err
		}
	}
}

func (p *Poller) query(ctx context.Context, jobID string, attempt int) (*Job, error) {
	resp, err := p.transport.Send(ctx, Request{
		Operation:   "job_status",
		Method:      http.MethodGet,
		Path:        resourcePath(p.statusPath, jobID),
		LongRunning: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return nil, &PollError{Kind: PollEmpty, JobID: jobID, Attempts: attempt}
	}
	if resp.Fields() == nil {
		// No status can be read from a bare array or text; the job is
		// still running as far as the client can tell.
		p.logger.Warn().
			Str("job_id", jobID).
			Int("attempt", attempt).
			Bool("structured", resp.Structured()).
			Msg("effects: status response is not an object")
		return &Job{ID: jobID, Status: StatusProcessing}, nil
	}
	return jobFromResponse(jobID, resp), nil
}
