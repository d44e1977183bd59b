package service

import (
	"fmt"
	"strconv"
)

// Extraction error taxonomy. The batch processor matches these with
// errors.As to decide whether one image failed or the whole batch must stop.

// ConfigError means the service cannot talk to the model at all (missing or
// rejected credentials). Batch-fatal: nothing is processed.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "extraction misconfigured: " + e.Reason
}

// RateLimitError is the model telling us to back off. Batch-fatal by policy
// (abort and report), but not a failure of the image being processed.
type RateLimitError struct {
	RetryAfterSeconds *int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfterSeconds != nil {
		return "rate limited by model API, retry after " + strconv.Itoa(*e.RetryAfterSeconds) + "s"
	}
	return "rate limited by model API"
}

// TransientError covers 5xx responses, network faults and timeouts. The
// image counts as failed and the batch continues.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("model API error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("model API unreachable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedResponseError means the model answered but the payload did not
// match the expected schema. Per-image failure, batch continues.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("model response did not match schema: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
