package ledger

import (
	"testing"
	"time"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPayment(t *testing.T, amount string) *Payment {
	p, err := NewPayment(uuid.New(), decimal.RequireFromString(amount), day(2026, 1, 10), PaymentMethodTransfer, " TX-1 ", "", testNow)
	require.NoError(t, err)
	return p
}

func TestPaymentMethod(t *testing.T) {
	for _, m := range []PaymentMethod{PaymentMethodQR, PaymentMethodTransfer, PaymentMethodCash, PaymentMethodCard} {
		assert.True(t, m.IsValid(), m)
	}
	assert.False(t, PaymentMethod("CHEQUE").IsValid())

	m, err := ParsePaymentMethod("qr")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodQR, m)

	_, err = ParsePaymentMethod("barter")
	assert.True(t, shared.IsKind(err, shared.CodeInvalidInput))
}

func TestNewPayment(t *testing.T) {
	p := createTestPayment(t, "50")
	assert.False(t, p.Verified)
	assert.Nil(t, p.VerifiedAt)
	assert.Equal(t, "TX-1", p.ExternalReference)

	tests := []struct {
		name   string
		inst   uuid.UUID
		amount decimal.Decimal
		date   time.Time
		method PaymentMethod
	}{
		{"nil installment", uuid.Nil, decimal.NewFromInt(1), testNow, PaymentMethodCash},
		{"zero amount", uuid.New(), decimal.Zero, testNow, PaymentMethodCash},
		{"negative amount", uuid.New(), decimal.NewFromInt(-1), testNow, PaymentMethodCash},
		{"no date", uuid.New(), decimal.NewFromInt(1), time.Time{}, PaymentMethodCash},
		{"bad method", uuid.New(), decimal.NewFromInt(1), testNow, PaymentMethod("GOLD")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayment(tt.inst, tt.amount, tt.date, tt.method, "", "", testNow)
			assert.True(t, shared.IsKind(err, shared.CodeInvalidInput))
		})
	}
}

func TestPayment_Verify(t *testing.T) {
	p := createTestPayment(t, "50")

	require.NoError(t, p.Verify("admin@school", "checked", testNow))
	assert.True(t, p.Verified)
	require.NotNil(t, p.VerifiedAt)
	assert.True(t, p.VerifiedAt.Equal(testNow))
	assert.Equal(t, "admin@school", p.VerifiedBy)
	assert.Equal(t, "checked", p.Notes)

	err := p.Verify("other", "", testNow.Add(time.Hour))
	assert.True(t, shared.IsKind(err, shared.CodeAlreadyVerified))
	assert.Equal(t, "admin@school", p.VerifiedBy)

	assert.True(t, shared.IsKind(p.EnsureRejectable(), shared.CodeAlreadyVerified))
}

func TestPayment_VerifyNeedsVerifier(t *testing.T) {
	p := createTestPayment(t, "50")
	err := p.Verify("  ", "", testNow)
	assert.True(t, shared.IsKind(err, shared.CodeInvalidInput))
	assert.False(t, p.Verified)
	assert.NoError(t, p.EnsureRejectable())
}

func TestPayment_Apply(t *testing.T) {
	p := createTestPayment(t, "50")
	amount := decimal.NewFromInt(70)
	method := PaymentMethodCash
	notes := "corrected"

	diff, err := p.Apply(PaymentChanges{Amount: &amount, Method: &method, Notes: &notes}, testNow)
	require.NoError(t, err)
	assert.Len(t, diff, 3)
	assert.True(t, p.Amount.Equal(amount))
	assert.Equal(t, PaymentMethodCash, p.Method)

	diff, err = p.Apply(PaymentChanges{Amount: &amount}, testNow)
	require.NoError(t, err)
	assert.Empty(t, diff)

	zero := decimal.Zero
	_, err = p.Apply(PaymentChanges{Amount: &zero}, testNow)
	assert.True(t, shared.IsKind(err, shared.CodeInvalidInput))
}

func TestPayment_ApplyOnVerified(t *testing.T) {
	p := createTestPayment(t, "50")
	require.NoError(t, p.Verify("admin", "", testNow))

	amount := decimal.NewFromInt(10)
	_, err := p.Apply(PaymentChanges{Amount: &amount}, testNow)
	assert.True(t, shared.IsKind(err, shared.CodeAlreadyVerified))

	notes := "receipt filed"
	diff, err := p.Apply(PaymentChanges{Notes: &notes}, testNow)
	require.NoError(t, err)
	assert.Len(t, diff, 1)
}

func TestInstallment_EnsureCovers(t *testing.T) {
	inst := Installment{Amount: decimal.NewFromInt(100)}

	assert.NoError(t, inst.EnsureCovers(decimal.Zero, decimal.NewFromInt(100)))
	assert.NoError(t, inst.EnsureCovers(decimal.NewFromInt(40), decimal.NewFromInt(60)))

	err := inst.EnsureCovers(decimal.Zero, decimal.NewFromInt(150))
	assert.True(t, shared.IsKind(err, shared.CodeExceedsOutstandingBalance))
	err = inst.EnsureCovers(decimal.NewFromInt(40), decimal.RequireFromString("60.01"))
	assert.True(t, shared.IsKind(err, shared.CodeExceedsOutstandingBalance))
}

func TestSumPayments(t *testing.T) {
	a := createTestPayment(t, "10.50")
	b := createTestPayment(t, "20.25")
	all := []Payment{*a, *b}

	assert.True(t, SumPayments(all, uuid.Nil).Equal(decimal.RequireFromString("30.75")))
	assert.True(t, SumPayments(all, a.ID).Equal(decimal.RequireFromString("20.25")))
}

func TestValidateReason(t *testing.T) {
	assert.NoError(t, ValidateReason("comprobante ilegible", DefaultMinReasonLength))
	assert.NoError(t, ValidateReason("late fee, 15 days overdue", DefaultMinReasonLength))
	assert.True(t, shared.IsKind(ValidateReason("too short", DefaultMinReasonLength), shared.CodeInvalidInput))
	assert.True(t, shared.IsKind(ValidateReason("   padded    ", DefaultMinReasonLength), shared.CodeInvalidInput))
}
