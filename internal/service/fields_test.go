package service

import (
	"testing"
	"time"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestParseIssuedDateFormats(t *testing.T) {
	want := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{
		"31/12/2024",
		"31-12-2024",
		"31.12.2024",
		"2024-12-31",
		"2024/12/31",
		"31/12/24",
		" 31/12/2024 ",
	} {
		got := parseIssuedDate(raw)
		if got == nil {
			t.Fatalf("parseIssuedDate(%q) = nil", raw)
		}
		if !got.Equal(want) {
			t.Fatalf("parseIssuedDate(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseIssuedDateRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "invalid", "31/13/2024", "tomorrow"} {
		if got := parseIssuedDate(raw); got != nil {
			t.Fatalf("parseIssuedDate(%q) = %v, want nil", raw, got)
		}
	}
}

func TestCleanString(t *testing.T) {
	if got := cleanString(strPtr("  ACME Corp ")); got == nil || *got != "ACME Corp" {
		t.Fatalf("cleanString trim = %v", got)
	}
	for _, raw := range []string{"", "   ", "null"} {
		if got := cleanString(strPtr(raw)); got != nil {
			t.Fatalf("cleanString(%q) = %q, want nil", raw, *got)
		}
	}
	if got := cleanString(nil); got != nil {
		t.Fatal("cleanString(nil) should stay nil")
	}
}

func TestNormalizeFieldsKeepsPartialData(t *testing.T) {
	payload := &geminiFieldsPayload{
		InvoiceNo:  strPtr("00000001"),
		SellerName: strPtr("CÔNG TY ABC"),
		IssuedDate: strPtr("31/12/2024"),
		Quantity:   floatPtr(2),
		VatRate:    floatPtr(10),
	}

	fields := normalizeFields(payload)
	if fields.InvoiceNo == nil || *fields.InvoiceNo != "00000001" {
		t.Fatalf("invoice_no = %v", fields.InvoiceNo)
	}
	if fields.SellerName == nil || *fields.SellerName != "CÔNG TY ABC" {
		t.Fatalf("seller_name = %v", fields.SellerName)
	}
	if fields.IssuedDate == nil || fields.IssuedDate.Format("2006-01-02") != "2024-12-31" {
		t.Fatalf("issued_date = %v", fields.IssuedDate)
	}
	if fields.Quantity == nil || *fields.Quantity != 2 {
		t.Fatalf("quantity = %v", fields.Quantity)
	}
	// Fields the model did not populate stay nil.
	if fields.FormNo != nil || fields.TotalAmount != nil {
		t.Fatal("unset fields must stay nil")
	}
}

func TestNormalizeFieldsDropsImplausibleValues(t *testing.T) {
	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	payload := &geminiFieldsPayload{
		IssuedDate:  strPtr(future),
		TotalAmount: floatPtr(-1000),
		VatRate:     floatPtr(250),
		Quantity:    floatPtr(-1),
	}

	fields := normalizeFields(payload)
	if fields.IssuedDate != nil {
		t.Fatal("future issued_date should be dropped")
	}
	if fields.TotalAmount != nil {
		t.Fatal("negative total_amount should be dropped")
	}
	if fields.VatRate != nil {
		t.Fatal("vat_rate above 100 should be dropped")
	}
	if fields.Quantity != nil {
		t.Fatal("negative quantity should be dropped")
	}
}
