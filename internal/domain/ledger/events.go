package ledger

import (
	"time"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventTypePlanStateChanged is published after a committed change that may alter plan completion
const EventTypePlanStateChanged = "PlanStateChanged"

// Transition names carried by PlanStateChangedEvent
const (
	TransitionVerified         = "VERIFIED"
	TransitionRejected         = "REJECTED"
	TransitionDeleted          = "DELETED"
	TransitionRecordedVerified = "RECORDED_VERIFIED"
)

// PlanStateChangedEvent tells the enrollment side that completion may have changed.
// The ledger never reads a response.
type PlanStateChangedEvent struct {
	shared.BaseDomainEvent
	PlanID       uuid.UUID       `json:"plan_id"`
	EnrollmentID uuid.UUID       `json:"enrollment_id"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	Transition   string          `json:"transition"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewPlanStateChangedEvent creates a PlanStateChangedEvent
func NewPlanStateChangedEvent(plan *Plan, payment *Payment, transition string, at time.Time) *PlanStateChangedEvent {
	return &PlanStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlanStateChanged, AggregateTypePlan, plan.ID, at),
		PlanID:          plan.ID,
		EnrollmentID:    plan.EnrollmentID,
		PaymentID:       payment.ID,
		Transition:      transition,
		Amount:          payment.Amount,
	}
}
