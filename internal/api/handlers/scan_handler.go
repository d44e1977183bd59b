package handlers

import (
	"bufio"
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"billsheet/internal/models"
	"billsheet/internal/service"
	"billsheet/internal/stream"
)

type ScanHandler struct {
	processor *service.BatchProcessor
	logger    *zap.Logger
}

func NewScanHandler(processor *service.BatchProcessor, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		processor: processor,
		logger:    logger,
	}
}

// ScanImages ingests a multipart batch of invoice images and answers with a
// text/event-stream narrating validation, extraction and persistence per
// image. Request-level problems (bad multipart, zero images) are plain error
// responses; everything after the stream opens is reported as events.
func (h *ScanHandler) ScanImages(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Malformed multipart body",
		})
	}

	parts := form.File["images"]
	if len(parts) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No images provided",
		})
	}

	// Buffer every part before the stream opens: once streaming starts
	// there is no way to answer with a clean HTTP error.
	images := make([]models.UploadedImage, 0, len(parts))
	for i, part := range parts {
		src, err := part.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Failed to read uploaded file",
			})
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Failed to read uploaded file",
			})
		}
		images = append(images, models.UploadedImage{
			Index:       i,
			Filename:    part.Filename,
			ContentType: part.Header.Get(fiber.HeaderContentType),
			Data:        data,
		})
	}

	h.logger.Info("scan batch accepted", zap.Int("images", len(images)))

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The stream writer runs after this handler returns, so the batch gets
	// its own context; the emitter cancels it when the client disconnects.
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events := make(chan models.ProcessingEvent, 16)
		go h.processor.Run(ctx, images, events)
		stream.NewEmitter(w, cancel, h.logger).Pump(events)
	}))

	return nil
}
