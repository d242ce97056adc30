package api

import (
	"net/http"
)

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, MsgListCategoriesFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	category, err := h.svc.CreateCategory(r.Context(), req.toNewCategory())
	if err != nil {
		h.writeServiceError(w, r, err, MsgCreateCategoryFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, category)
}
