package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"billsheet/internal/models"
)

// FieldExtractor is the narrow contract the processor holds on the external
// model, injected so tests can substitute a fake for the real client.
type FieldExtractor interface {
	// Preflight reports a configuration problem (e.g. missing API key)
	// before any image is touched.
	Preflight() error
	Extract(ctx context.Context, imageData []byte, mimeType string) (*models.BillFields, error)
}

// BillStore persists one extracted record and returns its generated id.
type BillStore interface {
	Insert(ctx context.Context, fields *models.BillFields) (uuid.UUID, error)
}

// Preflight implements FieldExtractor for GeminiClient.
func (c *GeminiClient) Preflight() error {
	if c.cfg.APIKey == "" {
		return &ConfigError{Reason: "GEMINI_API_KEY is not set"}
	}
	return nil
}

// BatchProcessor runs one scan batch: validate, extract, persist, one image
// at a time, narrating every step onto the event channel.
//
// Sequential processing is a policy, not an accident of the loop below:
// image i+1 must not start until every effect of image i has completed and
// its events are emitted. The one-call-at-a-time pacing is what keeps the
// service inside the model API's rate limits; do not parallelize this
// without revisiting that constraint.
type BatchProcessor struct {
	validator *ImageValidator
	extractor FieldExtractor
	store     BillStore
	logger    *zap.Logger
}

func NewBatchProcessor(validator *ImageValidator, extractor FieldExtractor, store BillStore, logger *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		validator: validator,
		extractor: extractor,
		store:     store,
		logger:    logger,
	}
}

// Run emits the full event narrative for the batch onto events and closes
// the channel when the batch terminates. ctx cancellation (client gone)
// lets the in-flight model call and its persist finish, then stops the
// batch before the next image.
func (p *BatchProcessor) Run(ctx context.Context, images []models.UploadedImage, events chan<- models.ProcessingEvent) {
	defer close(events)

	emit := func(ev models.ProcessingEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	start := time.Now()

	if err := p.extractor.Preflight(); err != nil {
		p.logger.Error("batch aborted before start", zap.Error(err))
		emit(models.ConfigurationError{Message: err.Error(), Timestamp: time.Now().UTC()})
		return
	}

	emit(models.BatchStarted{TotalImages: len(images), Timestamp: time.Now().UTC()})

	// In-flight work is detached from the client connection: once an
	// extraction has started we finish it and persist the result rather
	// than dropping a half-committed record.
	work := context.WithoutCancel(ctx)

	succeeded, failed := 0, 0
	for _, img := range images {
		if ctx.Err() != nil {
			p.logger.Warn("batch cancelled by client",
				zap.Int("next_index", img.Index),
				zap.Int("succeeded", succeeded),
				zap.Int("failed", failed),
			)
			return
		}

		emit(models.ImageReceived{
			Index:     img.Index,
			Filename:  img.Filename,
			SizeBytes: len(img.Data),
			Timestamp: time.Now().UTC(),
		})

		emit(models.ValidationStarted{Index: img.Index, Timestamp: time.Now().UTC()})
		outcome := p.validator.Validate(img)
		if !outcome.Valid {
			p.logger.Info("image rejected",
				zap.Int("index", img.Index),
				zap.String("reason", outcome.Reason),
			)
			emit(models.ValidationFailed{Index: img.Index, Reason: outcome.Reason, Timestamp: time.Now().UTC()})
			failed++
			continue
		}
		emit(models.ValidationSucceeded{Index: img.Index, Format: outcome.Format, Timestamp: time.Now().UTC()})

		emit(models.ExtractionStarted{Index: img.Index, Timestamp: time.Now().UTC()})
		fields, err := p.extractor.Extract(work, img.Data, outcome.Format)
		if err != nil {
			var rateLimit *RateLimitError
			if errors.As(err, &rateLimit) {
				p.logger.Warn("batch aborted by rate limit",
					zap.Int("index", img.Index),
					zap.Int("succeeded", succeeded),
					zap.Int("failed", failed),
				)
				emit(models.RateLimited{RetryAfterSeconds: rateLimit.RetryAfterSeconds, Timestamp: time.Now().UTC()})
				return
			}
			var configErr *ConfigError
			if errors.As(err, &configErr) {
				p.logger.Error("batch aborted by configuration error", zap.Error(err))
				emit(models.ConfigurationError{Message: err.Error(), Timestamp: time.Now().UTC()})
				return
			}
			p.logger.Info("extraction failed",
				zap.Int("index", img.Index),
				zap.Error(err),
			)
			emit(models.ExtractionFailed{Index: img.Index, Reason: err.Error(), Timestamp: time.Now().UTC()})
			failed++
			continue
		}
		emit(models.ExtractionSucceeded{Index: img.Index, Fields: fields, Timestamp: time.Now().UTC()})

		id, err := p.store.Insert(work, fields)
		if err != nil {
			// Extraction succeeded but storage did not; the batch moves
			// on so one database hiccup cannot discard the other images.
			p.logger.Error("persist failed",
				zap.Int("index", img.Index),
				zap.Error(err),
			)
			emit(models.PersistFailed{Index: img.Index, Reason: err.Error(), Timestamp: time.Now().UTC()})
			failed++
			continue
		}
		emit(models.RecordPersisted{Index: img.Index, RecordID: id, Timestamp: time.Now().UTC()})
		succeeded++
	}

	emit(models.BatchCompleted{
		Succeeded:  succeeded,
		Failed:     failed,
		Total:      len(images),
		DurationMs: time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})
}
