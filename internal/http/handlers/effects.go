package handlers

import (
	"net/http"
	"strings"
)

func (a *App) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.Effects.Categories(r.Context())
	if err != nil {
		a.effectsError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": categories})
}

func (a *App) ListEffects(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	list, err := a.Effects.Effects(r.Context(), category)
	if err != nil {
		a.effectsError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": list})
}
