package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notify-dapp/internal/application/draft"
	"github.com/notify-dapp/internal/domain"
	"github.com/notify-dapp/internal/pkg/validate"
	"github.com/notify-dapp/internal/transport/http/middleware"
)

type createDraftRequest struct {
	Channel string `json:"channel" validate:"required,eth_addr"`
}

type setTypeRequest struct {
	Type domain.NotificationType `json:"type"`
}

type recipientInputRequest struct {
	Text string `json:"text"`
	Key  string `json:"key"`
}

// DraftHandler edits notification drafts. Every draft belongs to the
// channel it was created for; tokens scoped to another channel cannot see it.
type DraftHandler struct {
	svc draft.Service
}

func NewDraftHandler(svc draft.Service) *DraftHandler { return &DraftHandler{svc: svc} }

func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !middleware.CanSendFor(r.Context(), req.Channel) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	d, err := h.svc.Create(r.Context(), req.Channel)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DraftHandler) SetType(w http.ResponseWriter, r *http.Request) {
	var req setTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification type")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "invalid notification type")
		return
	}
	if _, ok := h.owned(w, r); !ok {
		return
	}
	d, err := h.svc.SetType(r.Context(), chi.URLParam(r, "id"), req.Type)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DraftHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	var in draft.FieldsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := h.owned(w, r); !ok {
		return
	}
	d, err := h.svc.UpdateFields(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DraftHandler) InputRecipient(w http.ResponseWriter, r *http.Request) {
	var req recipientInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := h.owned(w, r); !ok {
		return
	}
	d, err := h.svc.InputRecipient(r.Context(), chi.URLParam(r, "id"), req.Text, req.Key)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DraftHandler) RemoveRecipient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.owned(w, r); !ok {
		return
	}
	d, err := h.svc.RemoveRecipient(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "address"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// owned loads the draft named in the URL and checks the caller may act for
// its channel. It writes the error response itself.
func (h *DraftHandler) owned(w http.ResponseWriter, r *http.Request) (*domain.Draft, bool) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return nil, false
	}
	if !middleware.CanSendFor(r.Context(), d.Channel) {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return d, true
}
