package dto

// BillUpdateRequest carries the editable fields of a stored bill. Every
// field is optional; a null clears the column. issued_date accepts the same
// formats the extractor does.
type BillUpdateRequest struct {
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

// BillCreateRequest carries a manually entered bill. Same field set as an
// update: every column the scan pipeline writes is enterable by hand.
type BillCreateRequest = BillUpdateRequest

// CountResponse wraps the bill count endpoint payload.
type CountResponse struct {
	Count int64 `json:"count"`
}
