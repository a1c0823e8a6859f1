package ledger_test

import (
	"context"
	"testing"

	appledger "github.com/cuotas/backend/internal/application/ledger"
	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPenalty_RaisesInstallmentAndTotalTogether(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	second := plan.Installments[1].ID

	inst, err := h.svc.ApplyPenalty(context.Background(), appledger.ApplyPenaltyRequest{
		InstallmentID: second,
		Amount:        dec("20.00"),
		Reason:        "late fee, 15 days overdue",
		Actor:         "admin@cuotas",
	})
	require.NoError(t, err)
	assert.True(t, inst.Amount.Equal(dec("120")))
	assert.True(t, inst.Outstanding.Equal(dec("120")))

	reread := h.plan(t, plan.ID)
	assert.True(t, reread.DeclaredTotal.Equal(dec("320")))
	assert.True(t, reread.Installments[1].Amount.Equal(dec("120")))
	assert.Equal(t, plan.Version+1, reread.Version)
	h.assertTotalsConsistent(t, plan.ID)

	entries := h.audit(t, ledger.SubjectInstallments, second)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "100.00 -> 120.00")
	assert.Contains(t, entries[0].Message, "late fee, 15 days overdue")
}

func TestApplyPenalty_LiftsPaidInstallmentBackToOutstanding(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	first := plan.Installments[0].ID
	h.pay(t, first, "100")

	inst, err := h.svc.ApplyPenalty(context.Background(), appledger.ApplyPenaltyRequest{
		InstallmentID: first, Amount: dec("5"), Reason: "bank transfer fee",
	})
	require.NoError(t, err)
	assert.True(t, inst.Outstanding.Equal(dec("5")))
	assert.Equal(t, string(ledger.InstallmentStatusPending), inst.Status)
	assert.Len(t, inst.Payments, 1)
}

func TestApplyPenalty_Refusals(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	ctx := context.Background()

	_, err := h.svc.ApplyPenalty(ctx, appledger.ApplyPenaltyRequest{
		InstallmentID: plan.Installments[0].ID, Amount: dec("0"), Reason: "late fee, 15 days overdue",
	})
	assertKind(t, err, shared.CodeInvalidInput)

	_, err = h.svc.ApplyPenalty(ctx, appledger.ApplyPenaltyRequest{
		InstallmentID: plan.Installments[0].ID, Amount: dec("20"), Reason: "late",
	})
	assertKind(t, err, shared.CodeInvalidInput)

	_, err = h.svc.ApplyPenalty(ctx, appledger.ApplyPenaltyRequest{
		InstallmentID: uuid.New(), Amount: dec("20"), Reason: "late fee, 15 days overdue",
	})
	assertKind(t, err, shared.CodeNotFound)

	reread := h.plan(t, plan.ID)
	assert.True(t, reread.DeclaredTotal.Equal(dec("300")))
}

func TestApplyPenalty_AuditFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	plan := h.standardPlan(t)
	broken := appledger.NewLedgerService(failingAuditScope{inner: h.scope}, h.repos, appledger.WithClock(h.clock.Now))

	_, err := broken.ApplyPenalty(context.Background(), appledger.ApplyPenaltyRequest{
		InstallmentID: plan.Installments[1].ID, Amount: dec("20"), Reason: "late fee, 15 days overdue",
	})
	assertKind(t, err, shared.CodeStorageFailure)

	reread := h.plan(t, plan.ID)
	assert.True(t, reread.DeclaredTotal.Equal(dec("300")))
	assert.True(t, reread.Installments[1].Amount.Equal(dec("100")))
	assert.Equal(t, plan.Version, reread.Version)
}
