package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus is derived on every read and never stored
type InstallmentStatus string

const (
	InstallmentStatusPaid    InstallmentStatus = "PAID"
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusOverdue InstallmentStatus = "OVERDUE"
)

var hundred = decimal.NewFromInt(100)

// InstallmentProjection is an installment with its derived values
type InstallmentProjection struct {
	Installment Installment
	Payments    []Payment
	AmountPaid  decimal.Decimal
	Outstanding decimal.Decimal
	Status      InstallmentStatus
}

// PlanProjection is a plan with its derived values
type PlanProjection struct {
	Plan          Plan
	Installments  []InstallmentProjection
	AmountPaid    decimal.Decimal
	AmountPending decimal.Decimal
	PercentPaid   decimal.Decimal
	IsComplete    bool
}

// InstallmentStatusOf applies the status rule. Paid wins over Overdue.
func InstallmentStatusOf(amount, paid decimal.Decimal, periodEnd, today time.Time) InstallmentStatus {
	if paid.GreaterThanOrEqual(amount) {
		return InstallmentStatusPaid
	}
	if DateOf(periodEnd).Before(DateOf(today)) {
		return InstallmentStatusOverdue
	}
	return InstallmentStatusPending
}

// ProjectInstallment derives paid/outstanding/status. Payments of other installments are ignored.
func ProjectInstallment(inst Installment, payments []Payment, today time.Time) InstallmentProjection {
	own := make([]Payment, 0, len(payments))
	paid := decimal.Zero
	for _, p := range payments {
		if p.InstallmentID != inst.ID {
			continue
		}
		own = append(own, p)
		paid = paid.Add(p.Amount)
	}
	return InstallmentProjection{
		Installment: inst,
		Payments:    own,
		AmountPaid:  paid,
		Outstanding: inst.Amount.Sub(paid),
		Status:      InstallmentStatusOf(inst.Amount, paid, inst.PeriodEnd, today),
	}
}

// ProjectPlan derives every plan-level value from the plan's installments and their payments
func ProjectPlan(plan Plan, payments []Payment, today time.Time) PlanProjection {
	byInstallment := make(map[uuid.UUID][]Payment, len(plan.Installments))
	for _, p := range payments {
		byInstallment[p.InstallmentID] = append(byInstallment[p.InstallmentID], p)
	}

	proj := PlanProjection{
		Plan:         plan,
		Installments: make([]InstallmentProjection, len(plan.Installments)),
		AmountPaid:   decimal.Zero,
		PercentPaid:  decimal.Zero,
	}
	for i, inst := range plan.Installments {
		ip := ProjectInstallment(inst, byInstallment[inst.ID], today)
		proj.Installments[i] = ip
		proj.AmountPaid = proj.AmountPaid.Add(ip.AmountPaid)
	}
	proj.AmountPending = plan.DeclaredTotal.Sub(proj.AmountPaid)
	if !plan.DeclaredTotal.IsZero() {
		ratio := proj.AmountPaid.Div(plan.DeclaredTotal).Mul(hundred)
		proj.PercentPaid = ratio.Round(2)
		proj.IsComplete = ratio.GreaterThanOrEqual(hundred)
	}
	return proj
}
