package api

import (
	"errors"
	"net/http"

	"github.com/leafsii/journal-backend/internal/journal"
)

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListEntries(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, MsgListEntriesFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, MsgEntryNotFound)
			return
		}
		h.writeServiceError(w, r, err, MsgGetEntryFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.svc.CreateEntry(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err, MsgCreateEntryFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// UpdateEntry replaces title, content and category. An unknown id is a
// plain update failure; only GET answers 404.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req EntryRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.svc.UpdateEntry(r.Context(), id, req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err, MsgUpdateEntryFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, MsgDeleteEntryFailed)
		return
	}
	h.writeMessage(w, MsgEntryDeleted)
}
