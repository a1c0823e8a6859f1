package ledger_test

import (
	"context"
	"sync"
	"testing"

	appledger "github.com/cuotas/backend/internal/application/ledger"
	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPayment_FullPaymentMarksInstallmentPaid(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)

	payment := h.pay(t, plan.Installments[0].ID, "100.00")
	assert.False(t, payment.Verified)
	assert.Equal(t, "TRANSFER", payment.Method)

	reread := h.plan(t, plan.ID)
	assert.Equal(t, string(ledger.InstallmentStatusPaid), reread.Installments[0].Status)
	assert.True(t, reread.Installments[0].Outstanding.IsZero())
	assert.Equal(t, "33.33", reread.PercentPaid.String())
	assert.True(t, reread.AmountPending.Equal(dec("200")))
	assert.False(t, reread.IsComplete)

	entries := h.audit(t, ledger.SubjectPayments, payment.ID)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "100.00")
	assert.Contains(t, entries[0].Message, "installment 1 of Ana Rojas")

	assert.Empty(t, h.events.transitions(), "unverified payments do not signal eligibility")
}

func TestRecordPayment_OverpaymentRefused(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	ctx := context.Background()
	inst := plan.Installments[0].ID

	_, err := h.svc.RecordPayment(ctx, appledger.RecordPaymentRequest{
		InstallmentID: inst, Amount: dec("150"), Date: day(1, 5), Method: ledger.PaymentMethodCash,
	})
	assertKind(t, err, shared.CodeExceedsOutstandingBalance)
	assert.Equal(t, int64(0), h.count(t, &models.PaymentModel{}))

	h.pay(t, inst, "60")
	_, err = h.svc.RecordPayment(ctx, appledger.RecordPaymentRequest{
		InstallmentID: inst, Amount: dec("40.01"), Date: day(1, 6), Method: ledger.PaymentMethodCash,
	})
	assertKind(t, err, shared.CodeExceedsOutstandingBalance)
	h.pay(t, inst, "40")

	got, err := h.svc.GetInstallment(ctx, inst)
	require.NoError(t, err)
	assert.True(t, got.AmountPaid.Equal(dec("100")))
	assert.Len(t, got.Payments, 2)
}

func TestRecordPayment_InputErrors(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	ctx := context.Background()

	_, err := h.svc.RecordPayment(ctx, appledger.RecordPaymentRequest{
		InstallmentID: plan.Installments[0].ID, Amount: dec("0"), Date: day(1, 5), Method: ledger.PaymentMethodQR,
	})
	assertKind(t, err, shared.CodeInvalidInput)

	_, err = h.svc.RecordPayment(ctx, appledger.RecordPaymentRequest{
		InstallmentID: plan.Installments[0].ID, Amount: dec("10"), Date: day(1, 5), Method: "CHEQUE",
	})
	assertKind(t, err, shared.CodeInvalidInput)

	_, err = h.svc.RecordPayment(ctx, appledger.RecordPaymentRequest{
		InstallmentID: uuid.New(), Amount: dec("10"), Date: day(1, 5), Method: ledger.PaymentMethodQR,
	})
	assertKind(t, err, shared.CodeNotFound)
}

func TestRecordPayment_VerifiedOnEntry(t *testing.T) {
	t.Run("caller asks for it", func(t *testing.T) {
		h := newHarness(t)
		plan := h.standardPlan(t)
		verified := true

		p, err := h.svc.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
			InstallmentID: plan.Installments[0].ID,
			Amount:        dec("100"),
			Date:          day(1, 5),
			Method:        ledger.PaymentMethodCash,
			Verified:      &verified,
			Actor:         "cashier@cuotas",
		})
		require.NoError(t, err)
		assert.True(t, p.Verified)
		assert.Equal(t, "cashier@cuotas", p.VerifiedBy)
		require.NotNil(t, p.VerifiedAt)
		assert.Equal(t, []string{ledger.TransitionRecordedVerified}, h.events.transitions())
	})

	t.Run("policy default with explicit opt-out", func(t *testing.T) {
		policy := appledger.DefaultPolicy()
		policy.VerifyManualEntries = true
		h := newHarness(t, appledger.WithPolicy(policy))
		plan := h.standardPlan(t)

		p := h.pay(t, plan.Installments[0].ID, "50")
		assert.True(t, p.Verified)

		unverified := false
		p, err := h.svc.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
			InstallmentID: plan.Installments[0].ID, Amount: dec("50"), Date: day(1, 5),
			Method: ledger.PaymentMethodQR, Verified: &unverified,
		})
		require.NoError(t, err)
		assert.False(t, p.Verified)
	})
}

func TestRecordPayment_DuplicateExternalReference(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	req := appledger.RecordPaymentRequest{
		InstallmentID: plan.Installments[0].ID, Amount: dec("10"), Date: day(1, 5),
		Method: ledger.PaymentMethodQR, ExternalReference: "QR-7781",
	}

	_, err := h.svc.RecordPayment(context.Background(), req)
	require.NoError(t, err)
	_, err = h.svc.RecordPayment(context.Background(), req)
	assertKind(t, err, shared.CodeInvalidInput)
	assert.Equal(t, int64(1), h.count(t, &models.PaymentModel{}))
}

func TestRecordPayment_AuditFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	broken := appledger.NewLedgerService(failingAuditScope{inner: h.scope}, h.repos,
		appledger.WithClock(h.clock.Now), appledger.WithEventPublisher(h.events))

	verified := true
	_, err := broken.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
		InstallmentID: plan.Installments[0].ID, Amount: dec("100"), Date: day(1, 5),
		Method: ledger.PaymentMethodCash, Verified: &verified,
	})

	assertKind(t, err, shared.CodeStorageFailure)
	assert.ErrorIs(t, err, errAuditDown)
	assert.Equal(t, int64(0), h.count(t, &models.PaymentModel{}))
	assert.Empty(t, h.events.transitions())
}

// Ten writers race to post 30.00 each on a 100.00 installment: exactly three fit.
func TestRecordPayment_ConcurrentWritersNeverOverpay(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	inst := plan.Installments[1].ID

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.svc.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
				InstallmentID: inst, Amount: dec("30"), Date: day(2, 3), Method: ledger.PaymentMethodQR,
			})
		}()
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assertKind(t, err, shared.CodeExceedsOutstandingBalance)
	}
	assert.Equal(t, 3, accepted)

	got, err := h.svc.GetInstallment(context.Background(), inst)
	require.NoError(t, err)
	assert.True(t, got.AmountPaid.Equal(dec("90")))
	assert.True(t, got.AmountPaid.LessThanOrEqual(got.Amount))
}

func TestUpdatePayment(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	ctx := context.Background()
	inst := plan.Installments[0].ID

	first := h.pay(t, inst, "60")
	h.pay(t, inst, "30")

	t.Run("amount within the room left by the others", func(t *testing.T) {
		amount := dec("70")
		notes := "corrected from bank statement"
		p, err := h.svc.UpdatePayment(ctx, appledger.UpdatePaymentRequest{
			PaymentID: first.ID, Amount: &amount, Notes: &notes, Actor: "admin@cuotas",
		})
		require.NoError(t, err)
		assert.True(t, p.Amount.Equal(amount))

		entries := h.audit(t, ledger.SubjectPayments, first.ID)
		require.Len(t, entries, 2)
		assert.Contains(t, entries[1].Message, "amount 60.00 -> 70.00")
	})

	t.Run("amount beyond the installment", func(t *testing.T) {
		amount := dec("70.01")
		_, err := h.svc.UpdatePayment(ctx, appledger.UpdatePaymentRequest{PaymentID: first.ID, Amount: &amount})
		assertKind(t, err, shared.CodeExceedsOutstandingBalance)

		got, err := h.svc.GetInstallment(ctx, inst)
		require.NoError(t, err)
		assert.True(t, got.AmountPaid.Equal(dec("100")))
	})

	t.Run("no change writes nothing", func(t *testing.T) {
		same := dec("70")
		_, err := h.svc.UpdatePayment(ctx, appledger.UpdatePaymentRequest{PaymentID: first.ID, Amount: &same})
		require.NoError(t, err)
		assert.Len(t, h.audit(t, ledger.SubjectPayments, first.ID), 2)
	})

	t.Run("verified payment keeps its money fields", func(t *testing.T) {
		_, err := h.svc.VerifyPayment(ctx, appledger.VerifyPaymentRequest{PaymentID: first.ID, Verifier: "auditor"})
		require.NoError(t, err)

		amount := dec("10")
		_, err = h.svc.UpdatePayment(ctx, appledger.UpdatePaymentRequest{PaymentID: first.ID, Amount: &amount})
		assertKind(t, err, shared.CodeAlreadyVerified)

		notes := "receipt archived"
		p, err := h.svc.UpdatePayment(ctx, appledger.UpdatePaymentRequest{PaymentID: first.ID, Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, notes, p.Notes)
		assert.True(t, p.Amount.Equal(dec("70")))
	})

	t.Run("missing payment", func(t *testing.T) {
		notes := "x"
		_, err := h.svc.UpdatePayment(ctx, appledger.UpdatePaymentRequest{PaymentID: uuid.New(), Notes: &notes})
		assertKind(t, err, shared.CodeNotFound)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		amount := decimal.NewFromInt(-5)
		_, err := h.svc.UpdatePayment(ctx, appledger.UpdatePaymentRequest{PaymentID: first.ID, Amount: &amount})
		assertKind(t, err, shared.CodeInvalidInput)
	})
}

func TestDeletePayment(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	ctx := context.Background()
	p := h.pay(t, plan.Installments[0].ID, "100")

	require.NoError(t, h.svc.DeletePayment(ctx, p.ID, "admin@cuotas"))

	reread := h.plan(t, plan.ID)
	assert.True(t, reread.AmountPaid.IsZero())
	assert.Equal(t, []string{ledger.TransitionDeleted}, h.events.transitions())
	entries := h.audit(t, ledger.SubjectPayments, p.ID)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1].Message, "Deleted payment of 100.00")

	assertKind(t, h.svc.DeletePayment(ctx, p.ID, ""), shared.CodeNotFound)
}
