package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Audit subject tables
const (
	SubjectPlans        = "payment_plans"
	SubjectInstallments = "installments"
	SubjectPayments     = "payments"
)

// DefaultMinReasonLength is the shortest accepted penalty or rejection reason
const DefaultMinReasonLength = 10

// AuditEntry is one line of the append-only audit log. ID is assigned by the store in append order.
type AuditEntry struct {
	ID           int64
	OccurredAt   time.Time
	SubjectTable string
	SubjectID    uuid.UUID
	Actor        string
	Message      string
}

// NewAuditEntry creates an AuditEntry
func NewAuditEntry(at time.Time, table string, subjectID uuid.UUID, actor, message string) AuditEntry {
	return AuditEntry{
		OccurredAt:   at,
		SubjectTable: table,
		SubjectID:    subjectID,
		Actor:        actor,
		Message:      message,
	}
}

// AuditSink receives an entry for every ledger mutation. A failed append fails the mutation.
type AuditSink interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// AuditTrail is an AuditSink that can be read back
type AuditTrail interface {
	AuditSink
	ListBySubject(ctx context.Context, table string, subjectID uuid.UUID) ([]AuditEntry, error)
}

// EnrollmentDirectory is the read-only view of the enrollment side
type EnrollmentDirectory interface {
	EnrollmentExists(ctx context.Context, enrollmentID uuid.UUID) (bool, error)
	// HolderLabel returns a display name for the enrollment holder, or "" if unknown
	HolderLabel(ctx context.Context, enrollmentID uuid.UUID) (string, error)
}

// EligibilityNotifier is told that a plan's completion state may have changed
type EligibilityNotifier interface {
	OnPlanStateChanged(ctx context.Context, enrollmentID uuid.UUID) error
}

// ValidateReason enforces a minimum length on a free-text reason
func ValidateReason(reason string, minLength int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(reason))
	if n < minLength {
		return shared.NewInvalidInputError(fmt.Sprintf("reason must be at least %d characters, got %d", minLength, n))
	}
	return nil
}
