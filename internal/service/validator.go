package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	_ "golang.org/x/image/webp"

	"billsheet/internal/models"
	"billsheet/pkg/config"
)

// Rejection reasons that tests and clients can match on.
const (
	ReasonEmptyFile = "empty file"
	ReasonCorrupted = "corrupted image"
)

// ImageValidator checks one uploaded image against the configured limits.
// It is a pure function over the bytes and the limits: no I/O, and the same
// input always produces the same outcome.
type ImageValidator struct {
	limits  config.UploadConfig
	allowed map[string]bool
}

func NewImageValidator(limits config.UploadConfig) *ImageValidator {
	// The declared content type is untrusted; these are the MIME types we
	// accept after sniffing the actual bytes.
	return &ImageValidator{
		limits: limits,
		allowed: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
		},
	}
}

// Validate never returns an error: malformed input is an expected outcome.
func (v *ImageValidator) Validate(img models.UploadedImage) models.ValidationOutcome {
	if len(img.Data) == 0 {
		return models.RejectedOutcome(ReasonEmptyFile)
	}

	if img.Index >= v.limits.MaxImageCount {
		return models.RejectedOutcome(fmt.Sprintf(
			"image count limit exceeded: position %d, limit %d", img.Index+1, v.limits.MaxImageCount))
	}

	if len(img.Data) > v.limits.MaxFileSizeBytes {
		return models.RejectedOutcome(fmt.Sprintf(
			"file size %d exceeds limit %d", len(img.Data), v.limits.MaxFileSizeBytes))
	}

	// Sniff the real format from the bytes; the Content-Type header is
	// trivially spoofable.
	detected := http.DetectContentType(img.Data)
	if !v.allowed[detected] {
		return models.RejectedOutcome(fmt.Sprintf("unsupported format: %s", detected))
	}

	// A correct magic-byte prefix is not enough: the image must actually
	// decode, otherwise a truncated or doctored file would reach the model.
	if _, _, err := image.Decode(bytes.NewReader(img.Data)); err != nil {
		return models.RejectedOutcome(ReasonCorrupted)
	}

	return models.ValidOutcome(detected)
}
