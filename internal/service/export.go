package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"billsheet/internal/models"
	"billsheet/internal/repository"
)

// Column headers are Vietnamese: the exported sheets go to local accounting.
var exportHeaders = []string{
	"ID",
	"Số tờ khai",
	"Ký hiệu",
	"Số hóa đơn",
	"Ngày phát hành",
	"Tên người bán",
	"Mã số thuế",
	"Tên hàng hóa",
	"Đơn vị tính",
	"Số lượng",
	"Đơn giá",
	"Thành tiền",
	"Thuế suất VAT",
	"Tiền thuế VAT",
}

// ExportService renders all stored bills as a CSV or XLSX download.
type ExportService struct {
	billRepo *repository.BillRepository
	logger   *zap.Logger
}

func NewExportService(billRepo *repository.BillRepository, logger *zap.Logger) *ExportService {
	return &ExportService{
		billRepo: billRepo,
		logger:   logger,
	}
}

// ExportCSV writes a UTF-8 CSV with a BOM so spreadsheet applications pick
// up the Vietnamese text encoding without prompting.
func (s *ExportService) ExportCSV(ctx context.Context) ([]byte, error) {
	bills, err := s.billRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bills for export: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")

	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeaders); err != nil {
		return nil, err
	}
	for _, bill := range bills {
		if err := w.Write(csvRow(bill)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	s.logger.Info("csv export generated", zap.Int("rows", len(bills)))
	return buf.Bytes(), nil
}

// ExportXLSX renders the same table as a workbook; numeric columns stay
// numbers so the sheet can be summed directly.
func (s *ExportService) ExportXLSX(ctx context.Context) ([]byte, error) {
	bills, err := s.billRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bills for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, bill := range bills {
		row := i + 2
		values := []any{
			bill.ID.String(),
			stringOrEmpty(bill.FormNo),
			stringOrEmpty(bill.SerialNo),
			stringOrEmpty(bill.InvoiceNo),
			dateOrEmpty(bill.IssuedDate),
			stringOrEmpty(bill.SellerName),
			stringOrEmpty(bill.SellerTaxCode),
			stringOrEmpty(bill.ItemName),
			stringOrEmpty(bill.Unit),
			numberOrEmpty(bill.Quantity),
			numberOrEmpty(bill.UnitPrice),
			numberOrEmpty(bill.TotalAmount),
			numberOrEmpty(bill.VatRate),
			numberOrEmpty(bill.VatAmount),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	s.logger.Info("xlsx export generated", zap.Int("rows", len(bills)))
	return buf.Bytes(), nil
}

func csvRow(bill *models.Bill) []string {
	return []string{
		bill.ID.String(),
		stringOrEmpty(bill.FormNo),
		stringOrEmpty(bill.SerialNo),
		stringOrEmpty(bill.InvoiceNo),
		dateOrEmpty(bill.IssuedDate),
		stringOrEmpty(bill.SellerName),
		stringOrEmpty(bill.SellerTaxCode),
		stringOrEmpty(bill.ItemName),
		stringOrEmpty(bill.Unit),
		decimalOrEmpty(bill.Quantity),
		decimalOrEmpty(bill.UnitPrice),
		decimalOrEmpty(bill.TotalAmount),
		percentOrEmpty(bill.VatRate),
		decimalOrEmpty(bill.VatAmount),
	}
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func dateOrEmpty(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}

func decimalOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func percentOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

// numberOrEmpty keeps XLSX cells numeric; nil becomes a blank cell.
func numberOrEmpty(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
