package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasa-app/darasa/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt.ID = uuid.New().String()
	repo.db.table[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pmt, ok := repo.db.table[id]; ok {
		return *pmt, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryUserPayments(ctx context.Context, userID string) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var pmts []payment.Payment
	for _, pmt := range repo.db.table {
		if pmt.UserID == userID {
			pmts = append(pmts, *pmt)
		}
	}
	sort.Slice(pmts, func(i, j int) bool { return pmts[i].CreatedAt.After(pmts[j].CreatedAt) })
	return pmts, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[pmt.ID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	orig.Status = pmt.Status
	orig.ProviderRef = pmt.ProviderRef
	orig.UpdatedAt = pmt.UpdatedAt
	return *orig, nil
}
