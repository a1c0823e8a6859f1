package persistence

import (
	"context"
	"testing"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createLedgerTestPayment(t *testing.T, db *gorm.DB, installmentID uuid.UUID, amount, reference string) *ledger.Payment {
	t.Helper()
	p, err := ledger.NewPayment(installmentID, decimal.RequireFromString(amount), ledgerDay(1, 10), ledger.PaymentMethodCash, reference, "", ledgerTestNow)
	require.NoError(t, err)
	require.NoError(t, NewGormPaymentRepository(db).Create(context.Background(), p))
	return p
}

func TestGormPaymentRepository_CreateAndFind(t *testing.T) {
	db := newLedgerTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	plan := persistLedgerTestPlan(t, db)
	instID := plan.Installments[0].ID
	p := createLedgerTestPayment(t, db, instID, "40.50", "GW-1")

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, instID, found.InstallmentID)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("40.50")))
	assert.Equal(t, ledger.PaymentMethodCash, found.Method)
	assert.Equal(t, "GW-1", found.ExternalReference)
	assert.False(t, found.Verified)
	assert.True(t, found.Date.Equal(ledgerDay(1, 10)))

	byRef, err := repo.FindByExternalReference(ctx, "GW-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byRef.ID)

	_, err = repo.FindByExternalReference(ctx, "GW-404")
	assert.True(t, shared.IsKind(err, shared.CodeNotFound))

	locked, err := repo.FindByIDForUpdate(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, locked.ID)
}

func TestGormPaymentRepository_DuplicateExternalReference(t *testing.T) {
	db := newLedgerTestDB(t)
	plan := persistLedgerTestPlan(t, db)
	createLedgerTestPayment(t, db, plan.Installments[0].ID, "10", "GW-7")

	dup, err := ledger.NewPayment(plan.Installments[1].ID, decimal.NewFromInt(10), ledgerDay(2, 3), ledger.PaymentMethodQR, "GW-7", "", ledgerTestNow)
	require.NoError(t, err)

	err = NewGormPaymentRepository(db).Create(context.Background(), dup)
	assert.True(t, shared.IsKind(err, shared.CodeInvalidInput))
}

func TestGormPaymentRepository_PaymentsWithoutReferenceDoNotCollide(t *testing.T) {
	db := newLedgerTestDB(t)
	plan := persistLedgerTestPlan(t, db)

	createLedgerTestPayment(t, db, plan.Installments[0].ID, "10", "")
	createLedgerTestPayment(t, db, plan.Installments[0].ID, "20", "")

	payments, err := NewGormPaymentRepository(db).FindByInstallment(context.Background(), plan.Installments[0].ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
	assert.True(t, ledger.SumPayments(payments, uuid.Nil).Equal(decimal.NewFromInt(30)))
}

func TestGormPaymentRepository_Listings(t *testing.T) {
	db := newLedgerTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	plan := persistLedgerTestPlan(t, db)
	first := createLedgerTestPayment(t, db, plan.Installments[0].ID, "10", "")
	createLedgerTestPayment(t, db, plan.Installments[1].ID, "20", "")

	require.NoError(t, first.Verify("admin", "", ledgerTestNow))
	require.NoError(t, repo.Update(ctx, first))

	all, err := repo.FindByInstallments(ctx, plan.InstallmentIDs())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	empty, err := repo.FindByInstallments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	count, err := repo.CountByInstallments(ctx, plan.InstallmentIDs())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	unverified, err := repo.FindUnverified(ctx, shared.Page{})
	require.NoError(t, err)
	require.Len(t, unverified, 1)
	queued, err := repo.CountUnverified(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)
	assert.True(t, unverified[0].Amount.Equal(decimal.NewFromInt(20)))

	reloaded, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Verified)
	assert.Equal(t, "admin", reloaded.VerifiedBy)
	require.NotNil(t, reloaded.VerifiedAt)
}

func TestGormPaymentRepository_Delete(t *testing.T) {
	db := newLedgerTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	plan := persistLedgerTestPlan(t, db)
	p := createLedgerTestPayment(t, db, plan.Installments[0].ID, "10", "")

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err := repo.FindByID(ctx, p.ID)
	assert.True(t, shared.IsKind(err, shared.CodeNotFound))
	assert.True(t, shared.IsKind(repo.Delete(ctx, p.ID), shared.CodeNotFound))
	assert.True(t, shared.IsKind(repo.Update(ctx, p), shared.CodeNotFound))
}
