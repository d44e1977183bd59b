package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"billsheet/internal/models"
	"billsheet/pkg/config"
)

const extractionPrompt = "You are an OCR assistant that extracts structured invoice data from an image. " +
	"Return a JSON object with these keys: form_no, serial_no, invoice_no, issued_date, " +
	"seller_name, seller_tax_code, item_name, unit, quantity, unit_price, total_amount, " +
	"vat_rate, vat_amount. Dates use YYYY-MM-DD where possible; quantity, unit_price, " +
	"total_amount, vat_rate and vat_amount are numbers. Use null for any value that cannot " +
	"be determined. Extract text exactly as shown in the image. Respond with JSON only " +
	"(no markdown, no code fences)."

// responseSchema constrains the model's output on the API side
// (generationConfig.responseSchema, OpenAPI-style with nullable).
const responseSchema = `{
  "type": "object",
  "properties": {
    "form_no": {"type": "string", "nullable": true},
    "serial_no": {"type": "string", "nullable": true},
    "invoice_no": {"type": "string", "nullable": true},
    "issued_date": {"type": "string", "nullable": true},
    "seller_name": {"type": "string", "nullable": true},
    "seller_tax_code": {"type": "string", "nullable": true},
    "item_name": {"type": "string", "nullable": true},
    "unit": {"type": "string", "nullable": true},
    "quantity": {"type": "number", "nullable": true},
    "unit_price": {"type": "number", "nullable": true},
    "total_amount": {"type": "number", "nullable": true},
    "vat_rate": {"type": "number", "nullable": true},
    "vat_amount": {"type": "number", "nullable": true}
  }
}`

// fieldsSchema re-checks the same contract locally before we trust the
// payload; a reply that escaped the API-side constraint is rejected as
// malformed instead of half-unmarshalled.
const fieldsSchema = `{
  "type": "object",
  "properties": {
    "form_no": {"type": ["string", "null"]},
    "serial_no": {"type": ["string", "null"]},
    "invoice_no": {"type": ["string", "null"]},
    "issued_date": {"type": ["string", "null"]},
    "seller_name": {"type": ["string", "null"]},
    "seller_tax_code": {"type": ["string", "null"]},
    "item_name": {"type": ["string", "null"]},
    "unit": {"type": ["string", "null"]},
    "quantity": {"type": ["number", "null"]},
    "unit_price": {"type": ["number", "null"]},
    "total_amount": {"type": ["number", "null"]},
    "vat_rate": {"type": ["number", "null"]},
    "vat_amount": {"type": ["number", "null"]}
  }
}`

// geminiFieldsPayload is the wire shape of the model's answer. issued_date
// stays a string here; normalizeFields parses it.
type geminiFieldsPayload struct {
	FormNo        *string  `json:"form_no"`
	SerialNo      *string  `json:"serial_no"`
	InvoiceNo     *string  `json:"invoice_no"`
	IssuedDate    *string  `json:"issued_date"`
	SellerName    *string  `json:"seller_name"`
	SellerTaxCode *string  `json:"seller_tax_code"`
	ItemName      *string  `json:"item_name"`
	Unit          *string  `json:"unit"`
	Quantity      *float64 `json:"quantity"`
	UnitPrice     *float64 `json:"unit_price"`
	TotalAmount   *float64 `json:"total_amount"`
	VatRate       *float64 `json:"vat_rate"`
	VatAmount     *float64 `json:"vat_amount"`
}

// GeminiClient adapts one validated image into a generateContent call and
// parses the structured reply. One HTTP client is shared across batches; no
// other state survives between calls.
type GeminiClient struct {
	cfg        *config.GeminiConfig
	httpClient *http.Client
	schema     *jsonschema.Schema
	logger     *zap.Logger
}

func NewGeminiClient(cfg *config.GeminiConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		schema:     jsonschema.MustCompileString("bill_fields.json", fieldsSchema),
		logger:     logger,
	}
}

// Extract sends exactly one image per call. Batching images into one request
// would defeat the sequential-processing policy, so it is deliberately not
// supported here.
func (c *GeminiClient) Extract(ctx context.Context, imageData []byte, mimeType string) (*models.BillFields, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, &ConfigError{Reason: "GEMINI_API_KEY is not set"}
	}

	start := time.Now()
	c.logger.Debug("gemini.extract.start",
		zap.String("model", c.cfg.Model),
		zap.String("mime_type", mimeType),
		zap.Int("image_bytes", len(imageData)),
	)

	payload := map[string]any{
		"contents": []map[string]any{{
			"role": "user",
			"parts": []map[string]any{
				{"text": extractionPrompt},
				{"inline_data": map[string]any{
					"mime_type": mimeType,
					"data":      base64.StdEncoding.EncodeToString(imageData),
				}},
			},
		}},
		"generationConfig": map[string]any{
			"temperature":      0.1,
			"responseMimeType": "application/json",
			"responseSchema":   json.RawMessage(responseSchema),
		},
	}

	raw, err := c.post(ctx, payload)
	if err != nil {
		c.logger.Warn("gemini.extract.failed",
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return nil, err
	}

	fields, err := c.parseResponse(raw)
	if err != nil {
		c.logger.Warn("gemini.extract.malformed",
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return nil, err
	}

	c.logger.Info("gemini.extract.ok",
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return fields, nil
}

func (c *GeminiClient) post(ctx context.Context, payload map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model, c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfterSeconds: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &ConfigError{Reason: fmt.Sprintf("model API rejected credentials (status %d)", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &TransientError{Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(msg)))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("read response body: %w", err)}
	}
	return raw, nil
}

// parseResponse digs the generated text out of the candidates envelope,
// validates it against the fields schema, and unmarshals it.
func (c *GeminiClient) parseResponse(raw []byte) (*models.BillFields, error) {
	var envelope struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("decode envelope: %w", err)}
	}

	var text string
	for _, candidate := range envelope.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text = part.Text
				break
			}
		}
		if text != "" {
			break
		}
	}
	if text == "" {
		return nil, &MalformedResponseError{Err: fmt.Errorf("response contains no text content")}
	}

	cleaned := stripCodeFences(text)

	var generic any
	if err := json.Unmarshal([]byte(cleaned), &generic); err != nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("response text is not JSON: %w", err)}
	}
	if err := c.schema.Validate(generic); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	var payload geminiFieldsPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	return normalizeFields(&payload), nil
}

// stripCodeFences removes a ```json ... ``` wrapper the model sometimes adds
// despite the JSON response mime type.
func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func parseRetryAfter(header string) *int {
	if header == "" {
		return nil
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return nil
	}
	return &seconds
}
