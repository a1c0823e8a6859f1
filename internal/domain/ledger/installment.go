package ledger

import (
	"time"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment is one due ("cuota") of a plan
type Installment struct {
	shared.BaseEntity
	PlanID      uuid.UUID
	Sequence    int
	PeriodStart time.Time
	PeriodEnd   time.Time
	Amount      decimal.Decimal
}

// EnsureCovers fails with EXCEEDS_OUTSTANDING_BALANCE when amount does not fit in
// what is left of the installment after alreadyPaid.
func (i *Installment) EnsureCovers(alreadyPaid, amount decimal.Decimal) error {
	outstanding := i.Amount.Sub(alreadyPaid)
	if amount.GreaterThan(outstanding) {
		return shared.NewDomainError(shared.CodeExceedsOutstandingBalance,
			"payment of "+amount.StringFixed(2)+" exceeds the outstanding balance of "+outstanding.StringFixed(2))
	}
	return nil
}

// DateOf truncates t to its calendar date in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
