package ledger

import (
	"fmt"
	"time"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypePlan is the aggregate type used for plan events
const AggregateTypePlan = "PaymentPlan"

// MoneyScale is the number of decimal places stored for every amount
const MoneyScale = 4

// DefaultAmountEpsilon absorbs rounding when installment amounts are compared with a declared total
var DefaultAmountEpsilon = decimal.NewFromFloat(0.01)

// InstallmentSpec is the caller's description of one due in a schedule
type InstallmentSpec struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Amount      decimal.Decimal
}

// Plan is the schedule of dues owned by exactly one enrollment.
// Invariant: DeclaredTotal equals the sum of installment amounts.
type Plan struct {
	shared.BaseAggregateRoot
	EnrollmentID             uuid.UUID
	DeclaredTotal            decimal.Decimal
	DeclaredInstallmentCount int
	HolderLabel              string
	Installments             []Installment
}

// NewPlan validates the schedule and builds a plan with fresh installments
func NewPlan(enrollmentID uuid.UUID, declaredTotal decimal.Decimal, specs []InstallmentSpec, declaredCount *int, epsilon decimal.Decimal, now time.Time) (*Plan, error) {
	if enrollmentID == uuid.Nil {
		return nil, shared.NewInvalidInputError("enrollment ID cannot be empty")
	}
	count, err := ValidateSchedule(declaredTotal, specs, declaredCount, epsilon)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		BaseAggregateRoot:        shared.NewBaseAggregateRoot(now),
		EnrollmentID:             enrollmentID,
		DeclaredInstallmentCount: count,
	}
	plan.Installments = buildInstallments(plan.ID, specs, now)
	// a total accepted within epsilon is stored as the exact installment sum
	plan.DeclaredTotal = plan.InstallmentSum()
	return plan, nil
}

// ValidateSchedule checks a schedule against a declared total and returns the installment count to store.
// Rules are checked in order and the first violation is returned.
func ValidateSchedule(declaredTotal decimal.Decimal, specs []InstallmentSpec, declaredCount *int, epsilon decimal.Decimal) (int, error) {
	if len(specs) == 0 {
		return 0, shared.NewInvalidInputError("a plan needs at least one installment")
	}
	sum := decimal.Zero
	for i, spec := range specs {
		if spec.PeriodStart.IsZero() || spec.PeriodEnd.IsZero() {
			return 0, shared.NewInvalidInputError(fmt.Sprintf("installment %d: period dates are required", i+1))
		}
		if !DateOf(spec.PeriodEnd).After(DateOf(spec.PeriodStart)) {
			return 0, shared.NewInvalidInputError(fmt.Sprintf("installment %d: period end must be after period start", i+1))
		}
		if !spec.Amount.IsPositive() {
			return 0, shared.NewInvalidInputError(fmt.Sprintf("installment %d: amount must be positive", i+1))
		}
		sum = sum.Add(spec.Amount)
	}
	if declaredCount != nil && *declaredCount != len(specs) {
		return 0, shared.NewInvalidInputError(fmt.Sprintf("declared installment count %d does not match %d installments", *declaredCount, len(specs)))
	}
	if sum.Sub(declaredTotal).Abs().GreaterThan(epsilon) {
		return 0, shared.NewDomainError(shared.CodeAmountMismatch,
			fmt.Sprintf("installments add up to %s but the declared total is %s", sum.StringFixed(2), declaredTotal.StringFixed(2)))
	}
	return len(specs), nil
}

// Replace swaps the whole schedule. Callers must make sure no installment has payments.
func (p *Plan) Replace(declaredTotal decimal.Decimal, specs []InstallmentSpec, declaredCount *int, epsilon decimal.Decimal, now time.Time) error {
	count, err := ValidateSchedule(declaredTotal, specs, declaredCount, epsilon)
	if err != nil {
		return err
	}
	p.DeclaredInstallmentCount = count
	p.Installments = buildInstallments(p.ID, specs, now)
	p.DeclaredTotal = p.InstallmentSum()
	p.Touch(now)
	p.IncrementVersion()
	return nil
}

// ApplyPenalty raises one installment and the plan total by the same amount.
// It returns the installment amount before the penalty.
func (p *Plan) ApplyPenalty(installmentID uuid.UUID, penalty decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !penalty.IsPositive() {
		return decimal.Zero, shared.NewInvalidInputError("penalty amount must be positive")
	}
	inst := p.Installment(installmentID)
	if inst == nil {
		return decimal.Zero, shared.NewNotFoundError("installment", installmentID)
	}
	previous := inst.Amount
	inst.Amount = inst.Amount.Add(penalty)
	inst.Touch(now)
	p.DeclaredTotal = p.DeclaredTotal.Add(penalty)
	p.Touch(now)
	p.IncrementVersion()
	return previous, nil
}

// RaiseStateChanged queues a PlanStateChanged event for a payment transition.
// The service publishes it once the transaction that caused it has committed.
func (p *Plan) RaiseStateChanged(payment *Payment, transition string, at time.Time) {
	p.Raise(NewPlanStateChangedEvent(p, payment, transition, at))
}

// Installment returns the installment with the given id, or nil
func (p *Plan) Installment(id uuid.UUID) *Installment {
	for i := range p.Installments {
		if p.Installments[i].ID == id {
			return &p.Installments[i]
		}
	}
	return nil
}

// InstallmentIDs returns the ids of all installments in schedule order
func (p *Plan) InstallmentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Installments))
	for i := range p.Installments {
		ids[i] = p.Installments[i].ID
	}
	return ids
}

// InstallmentSum adds up the installment amounts
func (p *Plan) InstallmentSum() decimal.Decimal {
	sum := decimal.Zero
	for _, inst := range p.Installments {
		sum = sum.Add(inst.Amount)
	}
	return sum
}

// Describe is the holder reference used in audit messages
func (p *Plan) Describe() string {
	if p.HolderLabel == "" {
		return fmt.Sprintf("enrollment %s", p.EnrollmentID)
	}
	return fmt.Sprintf("%s (enrollment %s)", p.HolderLabel, p.EnrollmentID)
}

func buildInstallments(planID uuid.UUID, specs []InstallmentSpec, now time.Time) []Installment {
	installments := make([]Installment, len(specs))
	for i, spec := range specs {
		installments[i] = Installment{
			BaseEntity:  shared.NewBaseEntityAt(now),
			PlanID:      planID,
			Sequence:    i + 1,
			PeriodStart: DateOf(spec.PeriodStart),
			PeriodEnd:   DateOf(spec.PeriodEnd),
			Amount:      spec.Amount,
		}
	}
	return installments
}
