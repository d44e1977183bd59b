package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingEvent is one step of the live narrative a scan request streams
// back to the client. Exactly one concrete struct exists per event kind, so
// adding a kind means adding a type the compiler will hold you to, not a new
// magic string.
//
// Ordering contract, enforced by the batch processor: for a given image index
// events appear as image_received -> validation_started ->
// (validation_succeeded | validation_failed) -> [extraction_started ->
// (extraction_succeeded | extraction_failed) -> [record_persisted |
// persist_failed]]; batch_completed (or rate_limited / configuration_error)
// is always the last event of the stream.
type ProcessingEvent interface {
	// EventName is the SSE event type written on the wire.
	EventName() string

	sealed()
}

type BatchStarted struct {
	TotalImages int       `json:"total_images"`
	Timestamp   time.Time `json:"timestamp"`
}

type ImageReceived struct {
	Index     int       `json:"index"`
	Filename  string    `json:"filename,omitempty"`
	SizeBytes int       `json:"size_bytes"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationStarted struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationSucceeded struct {
	Index     int       `json:"index"`
	Format    string    `json:"format"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationFailed struct {
	Index     int       `json:"index"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type ExtractionStarted struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

type ExtractionSucceeded struct {
	Index     int         `json:"index"`
	Fields    *BillFields `json:"fields"`
	Timestamp time.Time   `json:"timestamp"`
}

type ExtractionFailed struct {
	Index     int       `json:"index"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type RecordPersisted struct {
	Index     int       `json:"index"`
	RecordID  uuid.UUID `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
}

// PersistFailed means the model read the document but the row was not saved;
// the client gets the distinction so it knows the data was recognized.
type PersistFailed struct {
	Index     int       `json:"index"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// RateLimited terminates the batch: remaining images are never started.
type RateLimited struct {
	RetryAfterSeconds *int      `json:"retry_after_seconds,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// ConfigurationError is emitted as the sole event of a batch the service
// cannot run at all, e.g. no API key configured.
type ConfigurationError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type BatchCompleted struct {
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

func (BatchStarted) EventName() string        { return "batch_started" }
func (ImageReceived) EventName() string       { return "image_received" }
func (ValidationStarted) EventName() string   { return "validation_started" }
func (ValidationSucceeded) EventName() string { return "validation_succeeded" }
func (ValidationFailed) EventName() string    { return "validation_failed" }
func (ExtractionStarted) EventName() string   { return "extraction_started" }
func (ExtractionSucceeded) EventName() string { return "extraction_succeeded" }
func (ExtractionFailed) EventName() string    { return "extraction_failed" }
func (RecordPersisted) EventName() string     { return "record_persisted" }
func (PersistFailed) EventName() string       { return "persist_failed" }
func (RateLimited) EventName() string         { return "rate_limited" }
func (ConfigurationError) EventName() string  { return "configuration_error" }
func (BatchCompleted) EventName() string      { return "batch_completed" }

func (BatchStarted) sealed()        {}
func (ImageReceived) sealed()       {}
func (ValidationStarted) sealed()   {}
func (ValidationSucceeded) sealed() {}
func (ValidationFailed) sealed()    {}
func (ExtractionStarted) sealed()   {}
func (ExtractionSucceeded) sealed() {}
func (ExtractionFailed) sealed()    {}
func (RecordPersisted) sealed()     {}
func (PersistFailed) sealed()       {}
func (RateLimited) sealed()         {}
func (ConfigurationError) sealed()  {}
func (BatchCompleted) sealed()      {}
