package models

import (
	"time"

	"github.com/google/uuid"
)

// BillFields holds everything the vision model can read off one invoice
// image. Every field is optional: the model often recognizes only part of a
// document, and a partial read is still worth keeping.
type BillFields struct {
	FormNo        *string    `json:"form_no" db:"form_no"`
	SerialNo      *string    `json:"serial_no" db:"serial_no"`
	InvoiceNo     *string    `json:"invoice_no" db:"invoice_no"`
	IssuedDate    *time.Time `json:"issued_date" db:"issued_date"`
	SellerName    *string    `json:"seller_name" db:"seller_name"`
	SellerTaxCode *string    `json:"seller_tax_code" db:"seller_tax_code"`
	ItemName      *string    `json:"item_name" db:"item_name"`
	Unit          *string    `json:"unit" db:"unit"`
	Quantity      *float64   `json:"quantity" db:"quantity"`
	UnitPrice     *float64   `json:"unit_price" db:"unit_price"`
	TotalAmount   *float64   `json:"total_amount" db:"total_amount"`
	VatRate       *float64   `json:"vat_rate" db:"vat_rate"`
	VatAmount     *float64   `json:"vat_amount" db:"vat_amount"`
}

// Bill is the stored record: a generated identifier plus the extracted
// fields. Rows are written once by the scan pipeline and only ever mutated
// through the CRUD API.
type Bill struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	BillFields
}
