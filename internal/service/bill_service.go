package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"billsheet/internal/dto"
	"billsheet/internal/models"
)

// billRepository is the persistence surface the service needs, satisfied by
// *repository.BillRepository.
type billRepository interface {
	Insert(ctx context.Context, fields *models.BillFields) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	List(ctx context.Context) ([]*models.Bill, error)
	SearchByInvoice(ctx context.Context, pattern string) ([]*models.Bill, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id uuid.UUID, fields *models.BillFields) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// BillService is the CRUD surface over stored bills. Most rows are written
// by the scan pipeline; CreateBill covers manual entry.
type BillService struct {
	billRepo billRepository
	logger   *zap.Logger
}

func NewBillService(billRepo billRepository, logger *zap.Logger) *BillService {
	return &BillService{
		billRepo: billRepo,
		logger:   logger,
	}
}

// CreateBill stores a manually entered record and returns the stored row.
func (s *BillService) CreateBill(ctx context.Context, req *dto.BillCreateRequest) (*models.Bill, error) {
	id, err := s.billRepo.Insert(ctx, fieldsFromRequest(req))
	if err != nil {
		return nil, err
	}

	s.logger.Info("bill created", zap.String("id", id.String()))
	return s.billRepo.GetByID(ctx, id)
}

func (s *BillService) ListBills(ctx context.Context) ([]*models.Bill, error) {
	return s.billRepo.List(ctx)
}

// GetBill returns (nil, nil) when the id does not exist.
func (s *BillService) GetBill(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	bill, err := s.billRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return bill, err
}

func (s *BillService) SearchBills(ctx context.Context, pattern string) ([]*models.Bill, error) {
	return s.billRepo.SearchByInvoice(ctx, pattern)
}

func (s *BillService) CountBills(ctx context.Context) (int64, error) {
	return s.billRepo.Count(ctx)
}

// UpdateBill overwrites the bill's fields and returns the updated record, or
// (nil, nil) when the id does not exist. The re-fetch goes through GetBill so
// a row deleted between the update and the read is reported as not found,
// not as an internal error.
func (s *BillService) UpdateBill(ctx context.Context, id uuid.UUID, req *dto.BillUpdateRequest) (*models.Bill, error) {
	found, err := s.billRepo.Update(ctx, id, fieldsFromRequest(req))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	s.logger.Info("bill updated", zap.String("id", id.String()))
	return s.GetBill(ctx, id)
}

// DeleteBill reports whether a row was actually removed.
func (s *BillService) DeleteBill(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.billRepo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("bill deleted", zap.String("id", id.String()))
	}
	return deleted, nil
}

// fieldsFromRequest applies the same cleanup to hand-entered fields that
// normalizeFields applies to model output: blank and literal-"null" strings
// become nil, dates are parsed from the known formats.
func fieldsFromRequest(req *dto.BillUpdateRequest) *models.BillFields {
	fields := &models.BillFields{
		FormNo:        cleanString(req.FormNo),
		SerialNo:      cleanString(req.SerialNo),
		InvoiceNo:     cleanString(req.InvoiceNo),
		SellerName:    cleanString(req.SellerName),
		SellerTaxCode: cleanString(req.SellerTaxCode),
		ItemName:      cleanString(req.ItemName),
		Unit:          cleanString(req.Unit),
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		TotalAmount:   req.TotalAmount,
		VatRate:       req.VatRate,
		VatAmount:     req.VatAmount,
	}
	if raw := cleanString(req.IssuedDate); raw != nil {
		fields.IssuedDate = parseIssuedDate(*raw)
	}
	return fields
}
