package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"trendrider/internal/effects"
)

type jobStatusResponse struct {
	JobID          string         `json:"job_id"`
	Status         effects.Status `json:"status"`
	RawStatus      string         `json:"raw_status,omitempty"`
	ProcessedImage string         `json:"processed_image,omitempty"`
	OriginalImage  string         `json:"original_image,omitempty"`
	EffectName     string         `json:"effect_name,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
}

// JobStatus reports the current state of a job without waiting.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.Effects.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.effectsError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, jobStatusResponse{
		JobID:          job.ID,
		Status:         job.Status,
		RawStatus:      job.RawStatus,
		ProcessedImage: job.ProcessedImage,
		OriginalImage:  job.OriginalImage,
		EffectName:     job.EffectName,
		ErrorMessage:   job.ErrorMessage,
	})
}

// AwaitJob polls a job until it is terminal.
func (a *App) AwaitJob(w http.ResponseWriter, r *http.Request) {
	result, err := a.Effects.AwaitCompletion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.effectsError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}
