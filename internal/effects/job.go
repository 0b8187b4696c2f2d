package effects

import (
	"encoding/json"
	"strings"
)

// Status enumerates the job lifecycle as observed by the client.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	// StatusTimedOut is never reported by the server; the poller synthesizes
	// it once the attempt budget is spent.
	StatusTimedOut Status = "timed_out"
)

// ParseStatus maps a server status onto the state machine. Only the literal
// values "completed" and "failed" are terminal; anything else keeps polling.
func ParseStatus(raw string) Status {
	switch raw {
	case string(StatusCompleted):
		return StatusCompleted
	case string(StatusFailed):
		return StatusFailed
	default:
		return StatusProcessing
	}
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusSubmitted:
		return next != StatusSubmitted && next != ""
	case StatusProcessing:
		return next == StatusProcessing || next.Terminal()
	default:
		return false
	}
}

// Asset is the caller-side input of an upload.
type Asset struct {
	Data      []byte
	MediaType string
	Filename  string
}

// TransformRequest pairs an uploaded asset with the effect to apply.
type TransformRequest struct {
	AssetID  string `validate:"required"`
	EffectID string `validate:"required"`
}

// JobHandle identifies a submitted job. JobID is never empty.
type JobHandle struct {
	JobID  string
	Status Status
}

// Job is a single observation of the remote job.
type Job struct {
	ID             string
	Status         Status
	RawStatus      string
	ProcessedImage string
	OriginalImage  string
	ErrorMessage   string
	EffectName     string
	Fields         map[string]any
}

// JobResult is the resolved outcome of a completed job.
type JobResult struct {
	JobID          string         `json:"job_id"`
	Status         Status         `json:"status"`
	ProcessedImage string         `json:"processed_image,omitempty"`
	OriginalImage  string         `json:"original_image,omitempty"`
	EffectName     string         `json:"effect_name,omitempty"`
	Attempts       int            `json:"attempts"`
	Payload        map[string]any `json:"-"`
}

// ResultRef returns the processed asset reference, falling back to the
// original one. An empty string means the server sent neither.
func (r *JobResult) ResultRef() string {
	if r == nil {
		return ""
	}
	if r.ProcessedImage != "" {
		return r.ProcessedImage
	}
	return r.OriginalImage
}

// statusPayload mirrors GET processed_images/{id}. Field names are not yet
// stable on the server side, hence the alternates.
type statusPayload struct {
	ID               string `mapstructure:"id"`
	Status           string `mapstructure:"status"`
	ProcessedImage   string `mapstructure:"processed_image"`
	ProcessedURL     string `mapstructure:"processed_image_url"`
	OriginalImage    string `mapstructure:"original_image"`
	OriginalImageURL string `mapstructure:"original_image_url"`
	ErrorMessage     string `mapstructure:"error_message"`
	EffectName       string `mapstructure:"effect_name"`
}

// jobFromResponse reads the state from the status field alone. Side fields
// are decoded strictly only for terminal states; otherwise, or when that
// decode fails, each one is kept only if it reads as a string.
func jobFromResponse(jobID string, resp *Response) *Job {
	fields := resp.Fields()
	raw, _ := fields["status"].(string)
	job := &Job{
		ID:        strings.TrimSpace(jobID),
		Status:    ParseStatus(raw),
		RawStatus: raw,
		Fields:    fields,
	}
	if job.ID == "" {
		job.ID = stringField(fields, "id")
	}
	var payload statusPayload
	if !job.Status.Terminal() || resp.Decode(&payload) != nil {
		payload = statusPayload{
			ProcessedImage:   stringField(fields, "processed_image"),
			ProcessedURL:     stringField(fields, "processed_image_url"),
			OriginalImage:    stringField(fields, "original_image"),
			OriginalImageURL: stringField(fields, "original_image_url"),
			ErrorMessage:     stringField(fields, "error_message"),
			EffectName:       stringField(fields, "effect_name"),
		}
	}
	job.ProcessedImage = firstNonEmpty(payload.ProcessedImage, payload.ProcessedURL)
	job.OriginalImage = firstNonEmpty(payload.OriginalImage, payload.OriginalImageURL)
	job.ErrorMessage = strings.TrimSpace(payload.ErrorMessage)
	job.EffectName = payload.EffectName
	return job
}

// stringField returns fields[key] when it is a string or a JSON number.
func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func (j *Job) result(attempts int) *JobResult {
	return &JobResult{
		JobID:          j.ID,
		Status:         j.Status,
		ProcessedImage: j.ProcessedImage,
		OriginalImage:  j.OriginalImage,
		EffectName:     j.EffectName,
		Attempts:       attempts,
		Payload:        j.Fields,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
