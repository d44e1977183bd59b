package handlers

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"billsheet/internal/models"
	"billsheet/internal/service"
	"billsheet/pkg/config"
)

type stubExtractor struct{}

func (stubExtractor) Preflight() error { return nil }

func (stubExtractor) Extract(_ context.Context, _ []byte, _ string) (*models.BillFields, error) {
	return &models.BillFields{}, nil
}

type stubStore struct{}

func (stubStore) Insert(_ context.Context, _ *models.BillFields) (uuid.UUID, error) {
	return uuid.New(), nil
}

func newScanApp() *fiber.App {
	validator := service.NewImageValidator(config.UploadConfig{
		MaxFileSizeBytes: 1 << 20,
		MaxImageCount:    10,
	})
	processor := service.NewBatchProcessor(validator, stubExtractor{}, stubStore{}, zap.NewNop())
	handler := NewScanHandler(processor, zap.NewNop())

	// Parse the body lazily so a malformed multipart payload reaches the
	// handler's own 400 branch instead of erroring inside app.Test while
	// fasthttp pre-parses the request.
	app := fiber.New(fiber.Config{DisablePreParseMultipartForm: true})
	app.Post("/api/ocr/scan", handler.ScanImages)
	return app
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartScanRequest(t *testing.T, build func(w *multipart.Writer)) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	build(w)
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodPost, "/api/ocr/scan", &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestScanImagesRejectsMalformedMultipart(t *testing.T) {
	app := newScanApp()

	req := httptest.NewRequest(fiber.MethodPost, "/api/ocr/scan",
		strings.NewReader("this is not a multipart body"))
	req.Header.Set(fiber.HeaderContentType, "multipart/form-data; boundary=xxx")

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestScanImagesRejectsEmptyBatch(t *testing.T) {
	app := newScanApp()

	req := multipartScanRequest(t, func(w *multipart.Writer) {
		if err := w.WriteField("note", "no files attached"); err != nil {
			t.Fatalf("write field: %v", err)
		}
	})

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "No images provided") {
		t.Fatalf("body = %s", body)
	}
}

func TestScanImagesStreamsEvents(t *testing.T) {
	app := newScanApp()

	req := multipartScanRequest(t, func(w *multipart.Writer) {
		part, err := w.CreateFormFile("images", "bill.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(pngBytes(t)); err != nil {
			t.Fatalf("write image part: %v", err)
		}
	})

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	for _, name := range []string{
		"event: batch_started",
		"event: record_persisted",
		"event: batch_completed",
	} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("stream missing %q:\n%s", name, body)
		}
	}
}
