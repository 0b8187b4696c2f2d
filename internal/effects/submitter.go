package effects

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"trendrider/internal/infra"
)

// Submitter performs the upload-then-process handoff. Each call issues
// exactly one request and never retries.
type Submitter struct {
	transport      *Transport
	endpoints      Endpoints
	encoding       string
	maxUploadBytes int64
	validate       *validator.Validate
	logger         *infra.Logger
}

// NewSubmitter builds a Submitter that sends through transport.
func NewSubmitter(transport *Transport, cfg Config) *Submitter {
	cfg = cfg.withDefaults()
	return &Submitter{
		transport:      transport,
		endpoints:      cfg.Endpoints,
		encoding:       cfg.SubmitEncoding,
		maxUploadBytes: cfg.MaxUploadBytes,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		logger:         cfg.Logger,
	}
}

type uploadPayload struct {
	ID            string `mapstructure:"id"`
	OriginalImage string `mapstructure:"original_image"`
}

// Upload sends the image and returns the server-assigned asset id.
func (s *Submitter) Upload(ctx context.Context, asset Asset) (string, error) {
	mediaType, filename, err := inspectImage(asset, s.maxUploadBytes)
	if err != nil {
		return "", err
	}
	resp, err := s.transport.Send(ctx, Request{
		Operation: "upload",
		Method:    http.MethodPost,
		Path:      s.endpoints.Upload,
		Body: FormBody(nil, FormFile{
			Field:       "image",
			Filename:    filename,
			ContentType: mediaType,
			Data:        asset.Data,
		}),
		LongRunning: true,
	})
	if err != nil {
		return "", err
	}
	var payload uploadPayload
	if resp.Structured() {
		if err := resp.Decode(&payload); err != nil {
			return "", &ProtocolError{Kind: ProtocolMissingAssetID, Message: err.Error()}
		}
	}
	assetID := strings.TrimSpace(payload.ID)
	if assetID == "" {
		return "", &ProtocolError{Kind: ProtocolMissingAssetID}
	}
	s.logger.Info().
		Str("asset_id", assetID).
		Str("media_type", mediaType).
		Int("bytes", len(asset.Data)).
		Msg("effects: image uploaded")
	return assetID, nil
}

type submitPayload struct {
	ID               string `mapstructure:"id"`
	ProcessedImageID string `mapstructure:"processed_image_id"`
	Status           string `mapstructure:"status"`
	ErrorMessage     string `mapstructure:"error_message"`
	Message          string `mapstructure:"message"`
}

// Submit asks the service to apply req.EffectID to req.AssetID and returns
// the handle to poll.
func (s *Submitter) Submit(ctx context.Context, req TransformRequest) (JobHandle, error) {
	req.AssetID = strings.TrimSpace(req.AssetID)
	req.EffectID = strings.TrimSpace(req.EffectID)
	if err := s.validate.Struct(req); err != nil {
		return JobHandle{}, validationFrom(err)
	}

	var body Payload
	if s.encoding == SubmitEncodingJSON {
		body = JSONBody(map[string]string{"effect_id": req.EffectID})
	} else {
		body = FormBody(map[string]string{"effect_id": req.EffectID})
	}
	resp, err := s.transport.Send(ctx, Request{
		Operation:   "apply_effect",
		Method:      http.MethodPost,
		Path:        resourcePath(s.endpoints.Apply, req.AssetID),
		Body:        body,
		LongRunning: true,
	})
	if err != nil {
		return JobHandle{}, err
	}

	var payload submitPayload
	if resp.Structured() {
		if err := resp.Decode(&payload); err != nil {
			return JobHandle{}, &ProtocolError{Kind: ProtocolMissingJobID, Message: err.Error()}
		}
	}
	// The identifier field is not stable server-side; id wins over
	// processed_image_id.
	jobID := firstNonEmpty(payload.ID, payload.ProcessedImageID)
	if jobID == "" {
		return JobHandle{}, &ProtocolError{
			Kind:    ProtocolMissingJobID,
			Message: firstNonEmpty(payload.ErrorMessage, payload.Message),
		}
	}
	status := StatusSubmitted
	if payload.Status != "" {
		status = ParseStatus(payload.Status)
	}
	s.logger.Info().
		Str("asset_id", req.AssetID).
		Str("effect_id", req.EffectID).
		Str("job_id", jobID).
		Str("status", string(status)).
		Msg("effects: job submitted")
	return JobHandle{JobID: jobID, Status: status}, nil
}

func validationFrom(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fieldName(fe.Field()), Message: "is required"}
	}
	return &ValidationError{Message: err.Error()}
}

func fieldName(field string) string {
	switch field {
	case "AssetID":
		return "asset id"
	case "EffectID":
		return "effect id"
	default:
		return strings.ToLower(field)
	}
}
