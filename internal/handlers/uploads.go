package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vidshare/backend/internal/apperr"
)

// Default caps on whole multipart request bodies.
const (
	DefaultMaxVideoUpload int64 = 512 << 20
	DefaultMaxImageUpload int64 = 10 << 20
)

// UploadLimits caps the request body of media endpoints. Zero fields fall back
// to the defaults.
type UploadLimits struct {
	VideoBytes int64
	ImageBytes int64
}

func (l UploadLimits) video() int64 {
	if l.VideoBytes > 0 {
		return l.VideoBytes
	}
	return DefaultMaxVideoUpload
}

func (l UploadLimits) image() int64 {
	if l.ImageBytes > 0 {
		return l.ImageBytes
	}
	return DefaultMaxImageUpload
}

// parseMultipart bounds the whole body at limit before parsing it.
// ParseMultipartForm only bounds what is held in memory; larger parts spill to
// temporary files, so the cap has to sit on the body itself.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) error {
	if !isMultipart(r) {
		return apperr.Validation("multipart body is required")
	}
	if r.ContentLength > limit {
		return uploadTooLarge(limit)
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(min(limit, multipartMemory)); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return uploadTooLarge(limit)
		}
		return apperr.Validation("invalid multipart body")
	}
	return nil
}

func uploadTooLarge(limit int64) error {
	if limit >= 1<<20 {
		return apperr.PayloadTooLarge(fmt.Sprintf("upload exceeds %d MiB", limit>>20))
	}
	return apperr.PayloadTooLarge(fmt.Sprintf("upload exceeds %d bytes", limit))
}
