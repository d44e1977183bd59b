package repository

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"billsheet/internal/models"
)

var billColumns = []string{
	"id", "created_at", "form_no", "serial_no", "invoice_no", "issued_date",
	"seller_name", "seller_tax_code", "item_name", "unit",
	"quantity", "unit_price", "total_amount", "vat_rate", "vat_amount",
}

type BillRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewBillRepository(db *pgxpool.Pool, logger *zap.Logger) *BillRepository {
	return &BillRepository{
		db:     db,
		logger: logger,
	}
}

// Insert writes one extracted record; nil fields land as NULL columns.
// It is the persistence half of the scan pipeline and returns the generated
// record id.
func (r *BillRepository) Insert(ctx context.Context, fields *models.BillFields) (uuid.UUID, error) {
	id := uuid.New()
	query := squirrel.Insert("bills").
		Columns(billColumns...).
		Values(id, time.Now().UTC(),
			fields.FormNo, fields.SerialNo, fields.InvoiceNo, fields.IssuedDate,
			fields.SellerName, fields.SellerTaxCode, fields.ItemName, fields.Unit,
			fields.Quantity, fields.UnitPrice, fields.TotalAmount, fields.VatRate, fields.VatAmount).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

func (r *BillRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	query := squirrel.Select(billColumns...).
		From("bills").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	return r.scanOne(r.db.QueryRow(ctx, sql, args...))
}

func (r *BillRepository) List(ctx context.Context) ([]*models.Bill, error) {
	query := squirrel.Select(billColumns...).
		From("bills").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	return r.queryBills(ctx, query)
}

// SearchByInvoice matches invoice numbers by case-insensitive substring.
func (r *BillRepository) SearchByInvoice(ctx context.Context, pattern string) ([]*models.Bill, error) {
	query := squirrel.Select(billColumns...).
		From("bills").
		Where(squirrel.ILike{"invoice_no": "%" + pattern + "%"}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	return r.queryBills(ctx, query)
}

func (r *BillRepository) Count(ctx context.Context) (int64, error) {
	query := squirrel.Select("COUNT(*)").
		From("bills").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Update overwrites every extracted field of an existing bill. Returns false
// when the id does not exist.
func (r *BillRepository) Update(ctx context.Context, id uuid.UUID, fields *models.BillFields) (bool, error) {
	query := squirrel.Update("bills").
		Set("form_no", fields.FormNo).
		Set("serial_no", fields.SerialNo).
		Set("invoice_no", fields.InvoiceNo).
		Set("issued_date", fields.IssuedDate).
		Set("seller_name", fields.SellerName).
		Set("seller_tax_code", fields.SellerTaxCode).
		Set("item_name", fields.ItemName).
		Set("unit", fields.Unit).
		Set("quantity", fields.Quantity).
		Set("unit_price", fields.UnitPrice).
		Set("total_amount", fields.TotalAmount).
		Set("vat_rate", fields.VatRate).
		Set("vat_amount", fields.VatAmount).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *BillRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := squirrel.Delete("bills").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *BillRepository) queryBills(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Bill, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

func (r *BillRepository) scanOne(row pgx.Row) (*models.Bill, error) {
	var bill models.Bill
	err := row.Scan(
		&bill.ID, &bill.CreatedAt, &bill.FormNo, &bill.SerialNo, &bill.InvoiceNo, &bill.IssuedDate,
		&bill.SellerName, &bill.SellerTaxCode, &bill.ItemName, &bill.Unit,
		&bill.Quantity, &bill.UnitPrice, &bill.TotalAmount, &bill.VatRate, &bill.VatAmount,
	)
	if err != nil {
		return nil, err
	}
	return &bill, nil
}
