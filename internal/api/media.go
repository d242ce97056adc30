package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leafsii/journal-backend/internal/journal"
)

// uploadField is the multipart field carrying the file
const uploadField = "file"

var errNoFilePart = errors.New("no file part")

func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	media, err := h.svc.ListMedia(r.Context(), entryID)
	if err != nil {
		h.writeServiceError(w, r, err, MsgListMediaFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, media)
}

// UploadMedia streams the file part of a multipart body into storage
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, journal.MsgNoFile)
		return
	}

	part, err := nextFilePart(reader)
	if err != nil {
		switch {
		case isTooLarge(err):
			h.writeError(w, http.StatusRequestEntityTooLarge, MsgFileTooLarge)
		case errors.Is(err, errNoFilePart):
			h.writeError(w, http.StatusBadRequest, journal.MsgNoFile)
		default:
			h.writeError(w, http.StatusBadRequest, MsgInvalidBody)
		}
		return
	}
	defer part.Close()

	media, err := h.svc.CreateMedia(r.Context(), entryID, &journal.Upload{
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Size:        -1,
		Body:        part,
	})
	if err != nil {
		if isTooLarge(err) {
			h.writeError(w, http.StatusRequestEntityTooLarge, MsgFileTooLarge)
			return
		}
		h.writeServiceError(w, r, err, MsgUploadFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, media)
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteMedia(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, MsgDeleteMediaFailed)
		return
	}
	h.writeMessage(w, MsgMediaDeleted)
}

// ServeUpload returns the bytes of a stored file
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	obj, err := h.svc.OpenFile(r.Context(), name)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, MsgFileNotFound)
			return
		}
		h.logger.Errorw("Failed to open upload", "name", name, "error", err)
		h.writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	// names are never reused
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	if rs, ok := obj.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, obj.ModTime, rs)
		return
	}

	if obj.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warnw("Failed to stream upload", "name", name, "error", err)
	}
}

// nextFilePart skips parts until the file field; other parts are discarded
func nextFilePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errNoFilePart
			}
			return nil, err
		}
		if part.FormName() == uploadField && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
