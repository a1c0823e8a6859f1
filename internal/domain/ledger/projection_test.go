package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentFor(inst Installment, amount string) Payment {
	return Payment{
		InstallmentID: inst.ID,
		Amount:        decimal.RequireFromString(amount),
		Method:        PaymentMethodCash,
	}
}

func TestInstallmentStatusOf(t *testing.T) {
	amount := decimal.NewFromInt(100)
	end := day(2026, 1, 31)

	tests := []struct {
		name  string
		paid  string
		today int
		want  InstallmentStatus
	}{
		{"unpaid before end", "0", 20, InstallmentStatusPending},
		{"unpaid on end day", "0", 31, InstallmentStatusPending},
		{"partial before end", "40", 20, InstallmentStatusPending},
		{"fully paid", "100", 20, InstallmentStatusPaid},
		{"paid late still paid", "100", 31 + 45, InstallmentStatusPaid},
		{"overpaid counts as paid", "120", 20, InstallmentStatusPaid},
		{"unpaid after end", "0", 32, InstallmentStatusOverdue},
		{"partial after end", "99.99", 32, InstallmentStatusOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			today := day(2026, 1, 1).AddDate(0, 0, tt.today-1)
			assert.Equal(t, tt.want, InstallmentStatusOf(amount, decimal.RequireFromString(tt.paid), end, today))
		})
	}
}

func TestProjectPlan_FreshPlanAllPending(t *testing.T) {
	plan := createTestPlan(t)

	proj := ProjectPlan(*plan, nil, day(2026, 1, 5))

	require.Len(t, proj.Installments, 3)
	for _, ip := range proj.Installments {
		assert.Equal(t, InstallmentStatusPending, ip.Status)
		assert.True(t, ip.AmountPaid.IsZero())
		assert.True(t, ip.Outstanding.Equal(decimal.NewFromInt(100)))
	}
	assert.True(t, proj.PercentPaid.IsZero())
	assert.True(t, proj.AmountPending.Equal(decimal.NewFromInt(300)))
	assert.False(t, proj.IsComplete)
}

func TestProjectPlan_OneThirdPaid(t *testing.T) {
	plan := createTestPlan(t)
	payments := []Payment{paymentFor(plan.Installments[0], "100")}

	proj := ProjectPlan(*plan, payments, day(2026, 1, 5))

	assert.Equal(t, InstallmentStatusPaid, proj.Installments[0].Status)
	assert.Equal(t, InstallmentStatusPending, proj.Installments[1].Status)
	assert.Equal(t, "33.33", proj.PercentPaid.StringFixed(2))
	assert.True(t, proj.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.True(t, proj.AmountPending.Equal(decimal.NewFromInt(200)))
	assert.Len(t, proj.Installments[0].Payments, 1)
	assert.Empty(t, proj.Installments[1].Payments)
}

func TestProjectPlan_Complete(t *testing.T) {
	plan := createTestPlan(t)
	var payments []Payment
	for _, inst := range plan.Installments {
		payments = append(payments, paymentFor(inst, "60"), paymentFor(inst, "40"))
	}

	proj := ProjectPlan(*plan, payments, day(2026, 6, 1))

	assert.True(t, proj.IsComplete)
	assert.Equal(t, "100.00", proj.PercentPaid.StringFixed(2))
	assert.True(t, proj.AmountPending.IsZero())
	for _, ip := range proj.Installments {
		assert.Equal(t, InstallmentStatusPaid, ip.Status)
	}
}

func TestProjectPlan_ZeroTotal(t *testing.T) {
	proj := ProjectPlan(Plan{DeclaredTotal: decimal.Zero}, nil, testNow)
	assert.True(t, proj.PercentPaid.IsZero())
	assert.False(t, proj.IsComplete)
}

func TestProjectPlan_Overdue(t *testing.T) {
	plan := createTestPlan(t)
	payments := []Payment{paymentFor(plan.Installments[0], "100")}

	proj := ProjectPlan(*plan, payments, day(2026, 3, 10))

	require.Len(t, proj.Installments, 3)
	assert.Equal(t, InstallmentStatusPaid, proj.Installments[0].Status)
	assert.Equal(t, InstallmentStatusOverdue, proj.Installments[1].Status)
	assert.Equal(t, InstallmentStatusPending, proj.Installments[2].Status)
}

func TestProjectInstallment_IgnoresForeignPayments(t *testing.T) {
	plan := createTestPlan(t)
	inst := plan.Installments[0]
	payments := []Payment{
		paymentFor(inst, "30"),
		{InstallmentID: uuid.New(), Amount: decimal.NewFromInt(70)},
	}

	ip := ProjectInstallment(inst, payments, day(2026, 1, 5))
	assert.True(t, ip.AmountPaid.Equal(decimal.NewFromInt(30)))
	assert.True(t, ip.Outstanding.Equal(decimal.NewFromInt(70)))
	assert.Len(t, ip.Payments, 1)
}
