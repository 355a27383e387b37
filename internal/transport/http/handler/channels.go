package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notify-dapp/internal/application/delivery"
	"github.com/notify-dapp/internal/pkg/validate"
)

// ChannelHandler exposes read-only chain lookups.
type ChannelHandler struct {
	channels delivery.ChannelReader
	keys     delivery.KeyResolver
}

func NewChannelHandler(channels delivery.ChannelReader, keys delivery.KeyResolver) *ChannelHandler {
	return &ChannelHandler{channels: channels, keys: keys}
}

func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	if !validate.Address(addr) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	ch, err := h.channels.Channel(r.Context(), addr)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// Key reports whether the address can receive secret notifications.
func (h *ChannelHandler) Key(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	if !validate.Address(addr) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	key, found, err := h.keys.PublicKey(r.Context(), addr)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyEnvelope{Address: addr, Registered: found, PublicKey: key})
}
