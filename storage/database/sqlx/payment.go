package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/payment"
)

type paymentRow struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	CourseID    string      `db:"course_id"`
	AmountCents int         `db:"amount_cents"`
	Currency    null.String `db:"currency"`
	Status      string      `db:"status"`
	ProviderRef null.String `db:"provider_ref"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (r paymentRow) toPayment() payment.Payment {
	return payment.Payment{
		ID:          r.ID,
		UserID:      r.UserID,
		CourseID:    r.CourseID,
		AmountCents: r.AmountCents,
		Currency:    r.Currency.String,
		Status:      payment.Status(r.Status),
		ProviderRef: r.ProviderRef.String,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func newPaymentRow(pmt payment.Payment) paymentRow {
	return paymentRow{
		ID:          pmt.ID,
		UserID:      pmt.UserID,
		CourseID:    pmt.CourseID,
		AmountCents: pmt.AmountCents,
		Currency:    null.NewString(pmt.Currency, pmt.Currency != ""),
		Status:      string(pmt.Status),
		ProviderRef: null.NewString(pmt.ProviderRef, pmt.ProviderRef != ""),
		CreatedAt:   null.NewTime(pmt.CreatedAt.UTC(), !pmt.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(pmt.UpdatedAt.UTC(), !pmt.UpdatedAt.IsZero()),
	}
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return payment.ErrNotFound
	}
	return core.NewPersistenceError(err, msg)
}

func (repo paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	pmt.ID = uuid.New().String()
	row := newPaymentRow(pmt)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO payment (id, user_id, course_id, amount_cents, currency, status, provider_ref, created_at, updated_at)
		VALUES (:id, :user_id, :course_id, :amount_cents, :currency, :status, :provider_ref, :created_at, :updated_at)`,
		row)
	if err != nil {
		return payment.Payment{}, core.NewPersistenceError(err, "inserting payment")
	}
	return pmt, nil
}

func (repo paymentRepository) GetPaymentByID(ctx context.Context, id string) (payment.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payment.Payment{}, payment.ErrNotFound
	}
	var row paymentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM payment WHERE id = $1`, id); err != nil {
		return payment.Payment{}, repo.trapNoRowsErr(err, "finding payment by ID")
	}
	return row.toPayment(), nil
}

func (repo paymentRepository) QueryUserPayments(ctx context.Context, userID string) ([]payment.Payment, error) {
	var rows []paymentRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM payment WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, core.NewPersistenceError(err, "querying user payments")
	}
	pmts := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		pmts = append(pmts, r.toPayment())
	}
	return pmts, nil
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	row := newPaymentRow(pmt)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE payment SET status = :status, provider_ref = :provider_ref, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return payment.Payment{}, core.NewPersistenceError(err, "updating payment")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return pmt, nil
}
