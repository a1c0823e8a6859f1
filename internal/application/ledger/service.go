package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/logger"
	"github.com/cuotas/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const serviceName = "ledger"

// Clock returns the current time
type Clock func() time.Time

// Policy holds the bookkeeping knobs of the ledger
type Policy struct {
	AmountEpsilon       decimal.Decimal
	MinReasonLength     int
	VerifyManualEntries bool
}

// DefaultPolicy returns the policy used when none is configured
func DefaultPolicy() Policy {
	return Policy{
		AmountEpsilon:   ledger.DefaultAmountEpsilon,
		MinReasonLength: ledger.DefaultMinReasonLength,
	}
}

// Repositories groups the non-transactional read side of the ledger
type Repositories struct {
	Plans        ledger.PlanRepository
	Installments ledger.InstallmentRepository
	Payments     ledger.PaymentRepository
	Audit        ledger.AuditTrail
	Enrollments  ledger.EnrollmentDirectory
}

// LedgerService is the installment ledger: plan builder, payment recorder,
// verification workflow, penalty applier and the projected read path.
// Every mutation runs inside one TransactionScope call together with its audit entry.
type LedgerService struct {
	scope     TransactionScope
	repos     Repositories
	publisher shared.EventPublisher
	metrics   *telemetry.LedgerMetrics
	logger    *zap.Logger
	clock     Clock
	policy    Policy
}

// LedgerServiceOption configures a LedgerService
type LedgerServiceOption func(*LedgerService)

// WithClock replaces time.Now
func WithClock(clock Clock) LedgerServiceOption {
	return func(s *LedgerService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none
func WithLogger(l *zap.Logger) LedgerServiceOption {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics enables the ledger business counters
func WithMetrics(m *telemetry.LedgerMetrics) LedgerServiceOption {
	return func(s *LedgerService) {
		s.metrics = m
	}
}

// WithEventPublisher sets where PlanStateChanged events go after commit
func WithEventPublisher(p shared.EventPublisher) LedgerServiceOption {
	return func(s *LedgerService) {
		s.publisher = p
	}
}

// WithPolicy overrides the default policy
func WithPolicy(p Policy) LedgerServiceOption {
	return func(s *LedgerService) {
		s.policy = p
	}
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope TransactionScope, repos Repositories, opts ...LedgerServiceOption) *LedgerService {
	s := &LedgerService{
		scope:  scope,
		repos:  repos,
		logger: zap.NewNop(),
		clock:  func() time.Time { return time.Now().UTC() },
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) now() time.Time {
	return s.clock().UTC()
}

// log prefers the request-scoped logger carried by ctx
func (s *LedgerService) log(ctx context.Context) *zap.Logger {
	if l := logger.FromContext(ctx); l != nil && l.Core().Enabled(zap.ErrorLevel) {
		return logger.WithTraceContext(ctx, l)
	}
	return logger.WithTraceContext(ctx, s.logger)
}

// fail records err on the span and in the logs, then returns it unchanged
func (s *LedgerService) fail(ctx context.Context, span trace.Span, op string, err error) error {
	kind := shared.KindOf(err)
	telemetry.RecordError(span, err)
	telemetry.SetAttributes(span, telemetry.SpanAttrErrorKind, kind)

	fields := []zap.Field{zap.String("operation", op), zap.String("error_kind", kind), zap.Error(err)}
	switch kind {
	case shared.CodeStorageFailure, "":
		s.log(ctx).Error("Ledger operation failed", fields...)
	default:
		s.log(ctx).Info("Ledger operation refused", fields...)
	}
	if kind == shared.CodeExceedsOutstandingBalance {
		s.metrics.RecordOverpaymentRefusal(ctx, op)
	}
	return err
}

// publishPending drains the events the aggregates queued and publishes them.
// It runs after commit, so a failing publisher is only logged.
func (s *LedgerService) publishPending(ctx context.Context, sources ...shared.EventSource) {
	var events []shared.DomainEvent
	for _, src := range sources {
		events = append(events, src.PullEvents()...)
	}
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.log(ctx).Warn("Failed to publish ledger events", zap.Error(err))
	}
}

func actorOrDefault(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return DefaultActor
}

func requireVerifier(verifier string) (string, error) {
	v := strings.TrimSpace(verifier)
	if v == "" {
		return "", shared.NewInvalidInputError("verifier identity is required")
	}
	return v, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// describeInstallment names an installment the way audit messages do
func describeInstallment(plan *ledger.Plan, inst *ledger.Installment) string {
	return fmt.Sprintf("installment %d of %s", inst.Sequence, plan.Describe())
}

// ownerOf loads the installment and plan a payment belongs to, for audit messages and events
func ownerOf(ctx context.Context, repos TransactionalRepositories, installmentID uuid.UUID) (*ledger.Plan, *ledger.Installment, error) {
	inst, err := repos.InstallmentRepo().FindByID(ctx, installmentID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := repos.PlanRepo().FindByID(ctx, inst.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return plan, inst, nil
}
