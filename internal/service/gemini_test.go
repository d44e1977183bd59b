package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"billsheet/pkg/config"
)

func newTestGemini(serverURL string) *GeminiClient {
	return NewGeminiClient(&config.GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-1.5-flash",
		BaseURL: serverURL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

// envelope wraps generated text the way generateContent returns it.
func envelope(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestExtractParsesStructuredReply(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		var req struct {
			Contents []struct {
				Parts []map[string]any `json:"parts"`
			} `json:"contents"`
			GenerationConfig map[string]any `json:"generationConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Errorf("expected one content with prompt + image part, got %+v", req.Contents)
		}
		if req.GenerationConfig["responseMimeType"] != "application/json" {
			t.Errorf("responseMimeType missing from generationConfig")
		}

		fmt.Fprint(w, envelope(`{"invoice_no":"INV-42","seller_name":"ACME","total_amount":1000000,"vat_rate":10}`))
	}))
	defer server.Close()

	client := newTestGemini(server.URL)
	fields, err := client.Extract(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if gotPath != "/models/gemini-1.5-flash:generateContent" {
		t.Fatalf("request path = %q", gotPath)
	}
	if fields.InvoiceNo == nil || *fields.InvoiceNo != "INV-42" {
		t.Fatalf("invoice_no = %v", fields.InvoiceNo)
	}
	if fields.TotalAmount == nil || *fields.TotalAmount != 1000000 {
		t.Fatalf("total_amount = %v", fields.TotalAmount)
	}
	if fields.FormNo != nil {
		t.Fatal("unpopulated fields must remain nil")
	}
}

func TestExtractStripsCodeFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, envelope("```json\n{\"seller_name\":\"ACME\"}\n```"))
	}))
	defer server.Close()

	fields, err := newTestGemini(server.URL).Extract(context.Background(), []byte{1}, "image/png")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fields.SellerName == nil || *fields.SellerName != "ACME" {
		t.Fatalf("seller_name = %v", fields.SellerName)
	}
}

func TestExtractRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).Extract(context.Background(), []byte{1}, "image/png")
	var rateLimit *RateLimitError
	if !errors.As(err, &rateLimit) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateLimit.RetryAfterSeconds == nil || *rateLimit.RetryAfterSeconds != 17 {
		t.Fatalf("retry after = %v", rateLimit.RetryAfterSeconds)
	}
}

func TestExtractAuthFailureIsConfigError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).Extract(context.Background(), []byte{1}, "image/png")
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestExtractServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).Extract(context.Background(), []byte{1}, "image/png")
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if transient.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", transient.Status)
	}
}

func TestExtractNonJSONTextIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, envelope("I cannot read this image, sorry."))
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).Extract(context.Background(), []byte{1}, "image/png")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestExtractSchemaViolationIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// quantity must be a number per the fields schema.
		fmt.Fprint(w, envelope(`{"quantity":"two"}`))
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).Extract(context.Background(), []byte{1}, "image/png")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestExtractEmptyCandidatesIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer server.Close()

	_, err := newTestGemini(server.URL).Extract(context.Background(), []byte{1}, "image/png")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestExtractMissingAPIKey(t *testing.T) {
	client := NewGeminiClient(&config.GeminiConfig{
		Model:   "gemini-1.5-flash",
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	}, zap.NewNop())

	if err := client.Preflight(); err == nil {
		t.Fatal("Preflight should fail without an API key")
	}

	_, err := client.Extract(context.Background(), []byte{1}, "image/png")
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestExtractNetworkErrorIsTransient(t *testing.T) {
	// Nothing listens here; the dial fails immediately.
	client := newTestGemini("http://127.0.0.1:1")

	_, err := client.Extract(context.Background(), []byte{1}, "image/png")
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientError, got %v", err)
	}
}
