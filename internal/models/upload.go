package models

// UploadedImage is one image part of a scan request, held in memory for the
// lifetime of the batch and discarded afterwards. Index is the zero-based
// position of the part in the multipart body.
type UploadedImage struct {
	Index       int
	Filename    string
	ContentType string
	Data        []byte
}

// ValidationOutcome is the immutable verdict on one uploaded image. Either
// Valid is true and Format carries the detected MIME type, or Valid is false
// and Reason says why. Malformed input is an outcome here, never an error.
type ValidationOutcome struct {
	Valid  bool
	Format string
	Reason string
}

func ValidOutcome(format string) ValidationOutcome {
	return ValidationOutcome{Valid: true, Format: format}
}

func RejectedOutcome(reason string) ValidationOutcome {
	return ValidationOutcome{Reason: reason}
}
