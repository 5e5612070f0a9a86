package avatarshandler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"staffdesk/internal/domain/avatars"
	"staffdesk/internal/platform/requestctx"
	"staffdesk/internal/transport/http/api"
	"staffdesk/internal/transport/http/shared"
)

type Uploader interface {
	Upload(ctx context.Context, name string, body io.Reader) (string, error)
}

type Handler struct {
	Uploader Uploader
	Log      *zap.Logger
}

func NewHandler(uploader Uploader, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Uploader: uploader, Log: log}
}

// HandleUpload stores the "file" part and answers with its public URL.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	file, header, err := shared.OpenUpload(r, "file")
	if err != nil {
		FailUpload(w, h.Log, err, requestID)
		return
	}
	defer file.Close()

	url, err := h.Uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		FailUpload(w, h.Log, err, requestID)
		return
	}
	api.Created(w, map[string]string{"url": url}, requestID)
}

// FailUpload maps upload and storage errors onto API responses.
func FailUpload(w http.ResponseWriter, log *zap.Logger, err error, requestID string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, shared.ErrNoFile), errors.Is(err, avatars.ErrEmpty):
		api.Fail(w, http.StatusBadRequest, "file_required", "an image file is required", requestID)
	case errors.Is(err, avatars.ErrTooLarge), errors.As(err, &maxErr):
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", avatars.ErrTooLarge.Error(), requestID)
	case errors.Is(err, avatars.ErrUnsupported):
		api.Fail(w, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error(), requestID)
	default:
		log.Error("avatar upload failed", zap.String("requestId", requestID), zap.Error(err))
		api.Fail(w, http.StatusBadGateway, "upload_failed", "image upload failed", requestID)
	}
}
