package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
	"github.com/Lllllllleong/pdfxlsx/internal/services"
)

// Service is the conversion lifecycle the handlers drive.
type Service interface {
	Ingest(ctx context.Context, filename string, data []byte) (*models.ConversionResponse, error)
	Preview(ctx context.Context, id string) (*models.ConversionResponse, error)
	Download(ctx context.Context, id string) (*services.Artifact, error)
	Remove(ctx context.Context, id string) error
}

const (
	// multipartSlack covers multipart framing on top of the file itself.
	multipartSlack  = 1 << 20
	multipartMemory = 32 << 20
)

type Handler struct {
	svc      Service
	maxBytes int64
	logger   *slog.Logger
}

func NewHandler(svc Service, maxUploadBytes int64, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, maxBytes: maxUploadBytes, logger: logger}
}

// Root handles GET /api/.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: msgRoot})
}

// Upload handles POST /api/upload with a multipart "file" field. Only the
// first file is used.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, models.NewError(models.KindTooLarge, "request body too large", err))
			return
		}
		h.logger.Info("Could not parse multipart form.", "error", err)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Detail: msgMissingFile})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Detail: msgMissingFile})
		return
	}
	defer file.Close()

	// One byte past the ceiling is enough to reject the upload.
	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.svc.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Preview handles GET /api/preview/{id}.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /api/download/{id}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	art, err := h.svc.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		h.logger.Warn("Failed to stream download.", "error", err)
	}
}

// Delete handles DELETE /api/file/{id}. Unknown ids succeed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: msgDeleted})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed.", "error", err, "path", r.URL.Path)
	}
	writeJSON(w, status, models.ErrorResponse{Detail: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
