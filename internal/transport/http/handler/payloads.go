package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PayloadFetcher reads a published payload back by its content pointer.
type PayloadFetcher interface {
	Fetch(ctx context.Context, pointer string) ([]byte, error)
}

type PayloadHandler struct {
	store PayloadFetcher
}

func NewPayloadHandler(store PayloadFetcher) *PayloadHandler { return &PayloadHandler{store: store} }

func (h *PayloadHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Fetch(r.Context(), chi.URLParam(r, "pointer"))
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
