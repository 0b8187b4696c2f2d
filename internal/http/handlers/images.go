package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"trendrider/internal/effects"
	"trendrider/internal/i18n"
)

// multipartOverhead is allowed on top of the image size for boundaries and
// the effect_id field.
const multipartOverhead = 1 << 20

// ApplyEffect accepts a multipart form with an image file and an effect_id,
// runs the whole job and answers with the result.
func (a *App) ApplyEffect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(a.MaxUploadBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, r, http.StatusRequestEntityTooLarge, "too_large", i18n.MsgInvalidRequest, "image is too large")
			return
		}
		a.error(w, r, http.StatusBadRequest, "invalid_request", i18n.MsgInvalidRequest, "multipart form expected")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	effectID := strings.TrimSpace(r.FormValue("effect_id"))
	if effectID == "" {
		a.error(w, r, http.StatusBadRequest, "invalid_request", i18n.MsgInvalidRequest, "effect_id is required")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "invalid_request", i18n.MsgInvalidRequest, "image is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, a.MaxUploadBytes+1))
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "invalid_request", i18n.MsgInvalidRequest, "image could not be read")
		return
	}

	result, err := a.Effects.Apply(r.Context(), effects.Asset{
		Data:      data,
		MediaType: header.Header.Get("Content-Type"),
		Filename:  header.Filename,
	}, effectID)
	if err != nil {
		a.effectsError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}
