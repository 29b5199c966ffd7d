package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"glimpse/internal/httputil"
	"glimpse/internal/model"
	"glimpse/internal/service"
	"glimpse/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadAvatar handles POST /media/avatar
// Accepts a multipart image, normalizes it, and uploads it to R2.
func (h *MediaHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "avatar file is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadAvatar(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			httputil.WriteInternalError(w, "Failed to upload avatar")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, upload)
}

// PresignPostUpload handles POST /media/posts/presign
// Returns a presigned URL for uploading post media directly to R2.
func (h *MediaHandler) PresignPostUpload(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB is plenty for JSON
	var req model.PresignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	res, ok := h.presignOne(w, r, req, model.PostMediaFolder, "")
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// PresignPostUploadBatch handles POST /media/posts/presign/batch
// Returns presigned URLs for uploading multiple post media items.
func (h *MediaHandler) PresignPostUploadBatch(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req model.PresignUploadBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if len(req.Items) == 0 {
		httputil.WriteBadRequest(w, "items is required")
		return
	}
	if len(req.Items) > model.MaxPostMediaCount {
		httputil.WriteBadRequest(w, fmt.Sprintf("too many items (max %d)", model.MaxPostMediaCount))
		return
	}

	items := make([]model.PresignUploadResponse, 0, len(req.Items))
	for i := range req.Items {
		res, ok := h.presignOne(w, r, req.Items[i], model.PostMediaFolder, fmt.Sprintf("items[%d]", i))
		if !ok {
			return
		}
		items = append(items, *res)
	}

	httputil.WriteJSON(w, http.StatusOK, model.PresignUploadBatchResponse{Items: items})
}

// PresignStoryUpload handles POST /media/stories/presign
// Like post presign but also accepts mp4 video for video stories.
func (h *MediaHandler) PresignStoryUpload(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req model.PresignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.ContentType == "" {
		httputil.WriteBadRequest(w, "content_type is required")
		return
	}
	if req.FileSize > 0 && req.FileSize > model.MaxPostMediaSize {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Media exceeds 10MB limit")
		return
	}

	res, err := h.mediaService.PresignStoryUpload(r.Context(), req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidMediaType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported media type. Allowed: jpeg, png, webp, mp4")
		default:
			httputil.WriteInternalError(w, "Failed to create upload URL")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// presignOne validates one presign request item and writes the error
// response itself when validation or presigning fails.
func (h *MediaHandler) presignOne(w http.ResponseWriter, r *http.Request, item model.PresignUploadRequest, folder, label string) (*model.PresignUploadResponse, bool) {
	prefix := ""
	if label != "" {
		prefix = label + " "
	}

	item.ContentType = strings.TrimSpace(item.ContentType)
	if item.ContentType == "" {
		httputil.WriteBadRequest(w, prefix+"content_type is required")
		return nil, false
	}
	if item.FileSize > 0 && item.FileSize > model.MaxPostMediaSize {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, prefix+"media exceeds 10MB limit")
		return nil, false
	}

	res, err := h.mediaService.PresignUpload(r.Context(), folder, item.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, prefix+"unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			httputil.WriteInternalError(w, "Failed to create upload URL")
		}
		return nil, false
	}

	return res, true
}
