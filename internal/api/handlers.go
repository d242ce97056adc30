package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leafsii/journal-backend/internal/db/entities"
	"github.com/leafsii/journal-backend/internal/journal"
	"github.com/leafsii/journal-backend/internal/storage"
	"github.com/leafsii/journal-backend/internal/ws"
)

// JournalService is the set of operations the HTTP layer exposes;
// *journal.Service implements it
type JournalService interface {
	ListCategories(ctx context.Context) ([]entities.Category, error)
	CreateCategory(ctx context.Context, in entities.NewCategory) (*entities.Category, error)

	ListEntries(ctx context.Context) ([]entities.EntryWithCategory, error)
	GetEntry(ctx context.Context, id int64) (*entities.EntryWithCategory, error)
	CreateEntry(ctx context.Context, in entities.EntryInput) (*entities.Entry, error)
	UpdateEntry(ctx context.Context, id int64, in entities.EntryInput) (*entities.Entry, error)
	DeleteEntry(ctx context.Context, id int64) error

	ListComments(ctx context.Context, entryID int64) ([]entities.Comment, error)
	CreateComment(ctx context.Context, in entities.NewComment) (*entities.Comment, error)
	DeleteComment(ctx context.Context, id int64) error

	ListMedia(ctx context.Context, entryID int64) ([]entities.Media, error)
	CreateMedia(ctx context.Context, entryID int64, up *journal.Upload) (*entities.Media, error)
	DeleteMedia(ctx context.Context, id int64) error
	OpenFile(ctx context.Context, name string) (*storage.Object, error)

	Ready(ctx context.Context) error
}

var _ JournalService = (*journal.Service)(nil)

type Handler struct {
	svc            JournalService
	wsHub          *ws.Hub
	sseHandler     *ws.SSEHandler
	logger         *zap.SugaredLogger
	maxUploadBytes int64
}

func NewHandler(
	svc JournalService,
	wsHub *ws.Hub,
	sseHandler *ws.SSEHandler,
	logger *zap.SugaredLogger,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		svc:            svc,
		wsHub:          wsHub,
		sseHandler:     sseHandler,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health and ops endpoints
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ready(ctx); err != nil {
		h.logger.Warnw("Readiness check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "unavailable", Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, HealthDTO{Status: "ready"})
}

// WebSocket endpoint
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHub.HandleWebSocket(w, r)
}

// SSE endpoint
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseHandler.HandleSSE(w, r)
}

// Utility methods
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Message: message})
}

func (h *Handler) writeMessage(w http.ResponseWriter, message string) {
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// writeServiceError answers 400 for validation failures and 500 with
// failMessage for anything else
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, failMessage string) {
	var verr *journal.ValidationError
	if errors.As(err, &verr) {
		h.writeError(w, http.StatusBadRequest, verr.Message)
		return
	}

	h.logger.Errorw("API error",
		"method", r.Method,
		"path", r.URL.Path,
		"message", failMessage,
		"error", err,
	)
	h.writeError(w, http.StatusInternalServerError, failMessage)
}

// pathID reads a positive numeric path parameter, answering 400 otherwise
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, MsgInvalidID)
		return 0, false
	}
	return id, true
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// zero so the service reports the missing fields.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return true
	case errors.Is(err, errInvalidID):
		h.writeError(w, http.StatusBadRequest, MsgInvalidID)
	default:
		h.writeError(w, http.StatusBadRequest, MsgInvalidBody)
	}
	return false
}
