// Package effects submits image effect jobs to the remote effects service
// and resolves their outcome.
//
// A job goes through three calls: the image is uploaded to obtain an asset
// id, an apply_effect request turns the asset into a job, and the job status
// is polled at a fixed interval until it completes, fails, or the attempt
// budget is exhausted. Response normalization (including the service's habit
// of double-encoding JSON) happens in Transport only; everything above it
// sees structured values or typed errors.
package effects

import "context"

// Client wires the transport, submitter, poller and catalog over a single
// immutable Config. It is safe for concurrent use.
type Client struct {
	transport *Transport
	submitter *Submitter
	poller    *Poller
	catalog   *Catalog
}

// New builds a Client from cfg.
func New(cfg Config, opts ...PollerOption) (*Client, error) {
	cfg = cfg.withDefaults()
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		transport: transport,
		submitter: NewSubmitter(transport, cfg),
		poller:    NewPoller(transport, cfg, opts...),
		catalog:   NewCatalog(transport, cfg),
	}, nil
}

// Upload sends an image and returns its asset id.
func (c *Client) Upload(ctx context.Context, asset Asset) (string, error) {
	return c.submitter.Upload(ctx, asset)
}

// Submit starts applying an effect to an uploaded asset.
func (c *Client) Submit(ctx context.Context, req TransformRequest) (JobHandle, error) {
	return c.submitter.Submit(ctx, req)
}

// AwaitCompletion polls a job until it reaches a terminal state.
func (c *Client) AwaitCompletion(ctx context.Context, jobID string) (*JobResult, error) {
	return c.poller.AwaitCompletion(ctx, jobID)
}

// Status reads the current state of a job once.
func (c *Client) Status(ctx context.Context, jobID string) (*Job, error) {
	return c.poller.Status(ctx, jobID)
}

// Apply uploads asset, applies effectID to it and waits for the result.
func (c *Client) Apply(ctx context.Context, asset Asset, effectID string) (*JobResult, error) {
	assetID, err := c.submitter.Upload(ctx, asset)
	if err != nil {
		return nil, err
	}
	handle, err := c.submitter.Submit(ctx, TransformRequest{AssetID: assetID, EffectID: effectID})
	if err != nil {
		return nil, err
	}
	return c.poller.AwaitCompletion(ctx, handle.JobID)
}

// Categories lists effect categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return c.catalog.Categories(ctx)
}

// Effects lists effects, optionally filtered by category slug.
func (c *Client) Effects(ctx context.Context, category string) ([]Effect, error) {
	return c.catalog.Effects(ctx, category)
}

// Download fetches a result asset reference such as JobResult.ResultRef().
func (c *Client) Download(ctx context.Context, ref string) ([]byte, string, error) {
	return c.transport.Fetch(ctx, ref)
}
