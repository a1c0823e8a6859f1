package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a payment reached the institution
type PaymentMethod string

const (
	PaymentMethodQR       PaymentMethod = "QR"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
)

// IsValid checks if the method is one of the accepted methods
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodQR, PaymentMethodTransfer, PaymentMethodCash, PaymentMethodCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod accepts any letter case
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", shared.NewInvalidInputError(fmt.Sprintf("unknown payment method %q", s))
	}
	return m, nil
}

// Payment is money received against one installment.
// Once verified it can no longer be rejected or have its amount changed.
type Payment struct {
	shared.BaseEntity
	InstallmentID     uuid.UUID
	Date              time.Time
	Amount            decimal.Decimal
	Method            PaymentMethod
	ExternalReference string
	Verified          bool
	VerifiedAt        *time.Time
	VerifiedBy        string
	Notes             string
}

// NewPayment validates and builds an unverified payment
func NewPayment(installmentID uuid.UUID, amount decimal.Decimal, date time.Time, method PaymentMethod, externalReference, notes string, now time.Time) (*Payment, error) {
	if installmentID == uuid.Nil {
		return nil, shared.NewInvalidInputError("installment ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewInvalidInputError("payment amount must be positive")
	}
	if date.IsZero() {
		return nil, shared.NewInvalidInputError("payment date is required")
	}
	if !method.IsValid() {
		return nil, shared.NewInvalidInputError(fmt.Sprintf("unknown payment method %q", method))
	}
	return &Payment{
		BaseEntity:        shared.NewBaseEntityAt(now),
		InstallmentID:     installmentID,
		Date:              DateOf(date),
		Amount:            amount,
		Method:            method,
		ExternalReference: strings.TrimSpace(externalReference),
		Notes:             notes,
	}, nil
}

// Verify marks the payment verified. Verification is one-way.
func (p *Payment) Verify(verifier string, notes string, at time.Time) error {
	if p.Verified {
		return shared.NewDomainError(shared.CodeAlreadyVerified, fmt.Sprintf("payment %s is already verified", p.ID))
	}
	if strings.TrimSpace(verifier) == "" {
		return shared.NewInvalidInputError("verifier identity is required")
	}
	p.Verified = true
	p.VerifiedAt = &at
	p.VerifiedBy = verifier
	if notes != "" {
		p.Notes = notes
	}
	p.Touch(at)
	return nil
}

// EnsureRejectable fails once the payment is verified
func (p *Payment) EnsureRejectable() error {
	if p.Verified {
		return shared.NewDomainError(shared.CodeAlreadyVerified, fmt.Sprintf("payment %s is verified and cannot be rejected", p.ID))
	}
	return nil
}

// PaymentChanges is a partial edit; nil fields are left alone
type PaymentChanges struct {
	Amount *decimal.Decimal
	Date   *time.Time
	Method *PaymentMethod
	Notes  *string
}

// Validate checks the supplied fields without touching a payment
func (c PaymentChanges) Validate() error {
	if c.Amount != nil && !c.Amount.IsPositive() {
		return shared.NewInvalidInputError("payment amount must be positive")
	}
	if c.Date != nil && c.Date.IsZero() {
		return shared.NewInvalidInputError("payment date cannot be empty")
	}
	if c.Method != nil && !c.Method.IsValid() {
		return shared.NewInvalidInputError(fmt.Sprintf("unknown payment method %q", *c.Method))
	}
	return nil
}

// TouchesMoney reports whether the edit changes amount, date or method
func (c PaymentChanges) TouchesMoney() bool {
	return c.Amount != nil || c.Date != nil || c.Method != nil
}

// Apply edits the payment and returns a human-readable diff, empty when nothing changed
func (p *Payment) Apply(c PaymentChanges, now time.Time) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var diff []string
	if c.Amount != nil && !c.Amount.Equal(p.Amount) {
		if p.Verified {
			return nil, shared.NewDomainError(shared.CodeAlreadyVerified, "the amount of a verified payment cannot change")
		}
		diff = append(diff, fmt.Sprintf("amount %s -> %s", p.Amount.StringFixed(2), c.Amount.StringFixed(2)))
		p.Amount = *c.Amount
	}
	if c.Date != nil && !DateOf(*c.Date).Equal(p.Date) {
		if p.Verified {
			return nil, shared.NewDomainError(shared.CodeAlreadyVerified, "the date of a verified payment cannot change")
		}
		d := DateOf(*c.Date)
		diff = append(diff, fmt.Sprintf("date %s -> %s", p.Date.Format(time.DateOnly), d.Format(time.DateOnly)))
		p.Date = d
	}
	if c.Method != nil && *c.Method != p.Method {
		if p.Verified {
			return nil, shared.NewDomainError(shared.CodeAlreadyVerified, "the method of a verified payment cannot change")
		}
		diff = append(diff, fmt.Sprintf("method %s -> %s", p.Method, *c.Method))
		p.Method = *c.Method
	}
	if c.Notes != nil && *c.Notes != p.Notes {
		diff = append(diff, fmt.Sprintf("notes %q -> %q", p.Notes, *c.Notes))
		p.Notes = *c.Notes
	}
	if len(diff) > 0 {
		p.Touch(now)
	}
	return diff, nil
}

// SumPayments adds up payment amounts, skipping the payment with id exclude
func SumPayments(payments []Payment, exclude uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.ID == exclude {
			continue
		}
		sum = sum.Add(p.Amount)
	}
	return sum
}
