package api

import (
	"net/http"

	"github.com/leafsii/journal-backend/internal/db/entities"
)

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.svc.ListComments(r.Context(), entryID)
	if err != nil {
		h.writeServiceError(w, r, err, MsgListCommentsFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, comments)
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req CommentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.svc.CreateComment(r.Context(), entities.NewComment{
		EntryID:    entryID,
		Content:    req.Content,
		AuthorName: req.AuthorName,
	})
	if err != nil {
		h.writeServiceError(w, r, err, MsgCreateCommentFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, comment)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteComment(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, MsgDeleteCommentFailed)
		return
	}
	h.writeMessage(w, MsgCommentDeleted)
}
