package ledger

import (
	"context"
	"time"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PlanRepository persists plans together with their installments
type PlanRepository interface {
	// FindByID loads the plan and its installments in schedule order
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	// FindByIDForUpdate loads like FindByID while locking the plan row and its installment rows
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Plan, error)
	FindByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*Plan, error)
	ExistsForEnrollment(ctx context.Context, enrollmentID uuid.UUID) (bool, error)
	// Create inserts the plan and all installments
	Create(ctx context.Context, plan *Plan) error
	// ReplaceInstallments saves plan totals and swaps the stored installments for plan.Installments
	ReplaceInstallments(ctx context.Context, plan *Plan) error
	// SaveTotals saves declared total and count, guarded by the plan version
	SaveTotals(ctx context.Context, plan *Plan) error
	// Delete removes the plan and its installments
	Delete(ctx context.Context, id uuid.UUID) error
}

// InstallmentRepository gives direct access to single installments
type InstallmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)
	// FindByIDForUpdate locks the installment row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Installment, error)
	// FindOverdue pages through installments past their period end with a balance left,
	// oldest first, and counts all of them
	FindOverdue(ctx context.Context, date time.Time, page shared.Page) ([]Installment, int64, error)
	UpdateAmount(ctx context.Context, inst *Installment) error
}

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByIDForUpdate locks the payment row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByInstallment(ctx context.Context, installmentID uuid.UUID) ([]Payment, error)
	FindByInstallments(ctx context.Context, installmentIDs []uuid.UUID) ([]Payment, error)
	FindByExternalReference(ctx context.Context, reference string) (*Payment, error)
	FindUnverified(ctx context.Context, page shared.Page) ([]Payment, error)
	CountUnverified(ctx context.Context) (int64, error)
	CountByInstallments(ctx context.Context, installmentIDs []uuid.UUID) (int64, error)
	Create(ctx context.Context, payment *Payment) error
	Update(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}
