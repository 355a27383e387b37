package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notify-dapp/internal/application/delivery"
	"github.com/notify-dapp/internal/domain"
	"github.com/notify-dapp/internal/transport/http/middleware"
)

// DraftReader is the draft lookup the delivery endpoints authorize with.
type DraftReader interface {
	Get(ctx context.Context, draftID string) (*domain.Draft, error)
}

// AttemptLister lists the attempts of one draft.
type AttemptLister interface {
	ListByDraft(ctx context.Context, draftID string) ([]domain.Status, error)
}

// AttemptHandler starts deliveries and reports their status.
type AttemptHandler struct {
	drafts   DraftReader
	svc      delivery.Service
	attempts AttemptLister
}

func NewAttemptHandler(drafts DraftReader, svc delivery.Service, attempts AttemptLister) *AttemptHandler {
	return &AttemptHandler{drafts: drafts, svc: svc, attempts: attempts}
}

// Send starts a delivery of the draft and answers 202 with the first status.
// The attempt continues after the response; poll Get for its progress.
func (h *AttemptHandler) Send(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "id")
	if !h.authorize(w, r, draftID) {
		return
	}
	st, err := h.svc.Start(r.Context(), draftID)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/attempts/"+st.AttemptID)
	writeJSON(w, http.StatusAccepted, st)
}

func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	if !h.authorize(w, r, st.DraftID) {
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *AttemptHandler) ListByDraft(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "id")
	if !h.authorize(w, r, draftID) {
		return
	}
	list, err := h.attempts.ListByDraft(r.Context(), draftID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AttemptsEnvelope{DraftID: draftID, Attempts: list})
}

func (h *AttemptHandler) authorize(w http.ResponseWriter, r *http.Request, draftID string) bool {
	d, err := h.drafts.Get(r.Context(), draftID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "draft not found")
			return false
		}
		httpError(w, err)
		return false
	}
	if !middleware.CanSendFor(r.Context(), d.Channel) {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}
