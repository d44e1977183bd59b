package service

import (
	"strings"
	"time"

	"billsheet/internal/models"
)

// Invoice dates come back from the model in whatever format was printed on
// the document. These cover the formats seen in practice, day-first variants
// first because that is how Vietnamese invoices are dated.
var issuedDateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/06",
	"02-01-06",
}

// parseIssuedDate tries each known format in order. Returns nil when nothing
// matches; an unparseable date is dropped, not an error.
func parseIssuedDate(raw string) *time.Time {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil
	}
	for _, format := range issuedDateFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return &t
		}
	}
	return nil
}

// cleanString maps the literal "null" and empty strings (which some model
// replies use instead of JSON null) to nil.
func cleanString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return &trimmed
}

// normalizeFields converts the model's wire payload into stored BillFields.
// Values that fail sanity checks are dropped to nil rather than failing the
// extraction: a bad VAT rate should not lose the seller name.
func normalizeFields(p *geminiFieldsPayload) *models.BillFields {
	fields := &models.BillFields{
		FormNo:        cleanString(p.FormNo),
		SerialNo:      cleanString(p.SerialNo),
		InvoiceNo:     cleanString(p.InvoiceNo),
		SellerName:    cleanString(p.SellerName),
		SellerTaxCode: cleanString(p.SellerTaxCode),
		ItemName:      cleanString(p.ItemName),
		Unit:          cleanString(p.Unit),
		Quantity:      nonNegative(p.Quantity),
		UnitPrice:     nonNegative(p.UnitPrice),
		TotalAmount:   nonNegative(p.TotalAmount),
		VatRate:       percentage(p.VatRate),
		VatAmount:     nonNegative(p.VatAmount),
	}

	if raw := cleanString(p.IssuedDate); raw != nil {
		// A future issue date is a misread.
		if date := parseIssuedDate(*raw); date != nil && !date.After(time.Now()) {
			fields.IssuedDate = date
		}
	}

	return fields
}

func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

func percentage(v *float64) *float64 {
	if v == nil || *v < 0 || *v > 100 {
		return nil
	}
	return v
}
