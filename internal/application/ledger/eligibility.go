package ledger

import (
	"context"
	"fmt"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EligibilityHandler forwards PlanStateChanged events to the enrollment side.
// The ledger never waits for an eligibility decision; it only signals.
type EligibilityHandler struct {
	notifier ledger.EligibilityNotifier
	logger   *zap.Logger
}

// NewEligibilityHandler creates an EligibilityHandler
func NewEligibilityHandler(notifier ledger.EligibilityNotifier, l *zap.Logger) *EligibilityHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &EligibilityHandler{notifier: notifier, logger: l}
}

// EventTypes returns the events this handler consumes
func (h *EligibilityHandler) EventTypes() []string {
	return []string{ledger.EventTypePlanStateChanged}
}

// Handle notifies the enrollment side about the plan's enrollment
func (h *EligibilityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*ledger.PlanStateChangedEvent)
	if !ok {
		return fmt.Errorf("eligibility: unexpected event %T", event)
	}
	if err := h.notifier.OnPlanStateChanged(ctx, changed.EnrollmentID); err != nil {
		return fmt.Errorf("eligibility notification for enrollment %s: %w", changed.EnrollmentID, err)
	}
	logger.WithTraceContext(ctx, h.logger).Debug("Eligibility notified",
		zap.String("enrollment_id", changed.EnrollmentID.String()),
		zap.String("transition", changed.Transition),
	)
	return nil
}

var _ shared.EventHandler = (*EligibilityHandler)(nil)

// LoggingEligibilityNotifier records eligibility signals in the log. It stands in for the
// enrollment service when none is wired.
type LoggingEligibilityNotifier struct {
	logger *zap.Logger
}

// NewLoggingEligibilityNotifier creates a LoggingEligibilityNotifier
func NewLoggingEligibilityNotifier(l *zap.Logger) *LoggingEligibilityNotifier {
	if l == nil {
		l = zap.NewNop()
	}
	return &LoggingEligibilityNotifier{logger: l}
}

// OnPlanStateChanged logs the enrollment whose plan changed
func (n *LoggingEligibilityNotifier) OnPlanStateChanged(ctx context.Context, enrollmentID uuid.UUID) error {
	logger.WithTraceContext(ctx, n.logger).Info("Plan completion may have changed",
		zap.String("enrollment_id", enrollmentID.String()),
	)
	return nil
}

var _ ledger.EligibilityNotifier = (*LoggingEligibilityNotifier)(nil)
