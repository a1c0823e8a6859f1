package ledger

import (
	"context"
	"time"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// GetPlan returns a plan with every derived value computed fresh
func (s *LedgerService) GetPlan(ctx context.Context, planID uuid.UUID) (*PlanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "get_plan")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPlanID, planID.String())

	plan, err := s.repos.Plans.FindByID(ctx, planID)
	if err != nil {
		return nil, s.fail(ctx, span, "get_plan", err)
	}
	resp, err := s.projectPlan(ctx, plan)
	if err != nil {
		return nil, s.fail(ctx, span, "get_plan", err)
	}
	return resp, nil
}

// GetPlanByEnrollment returns the plan owned by an enrollment
func (s *LedgerService) GetPlanByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*PlanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "get_plan_by_enrollment")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrEnrollmentID, enrollmentID.String())

	plan, err := s.repos.Plans.FindByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, s.fail(ctx, span, "get_plan_by_enrollment", err)
	}
	resp, err := s.projectPlan(ctx, plan)
	if err != nil {
		return nil, s.fail(ctx, span, "get_plan_by_enrollment", err)
	}
	return resp, nil
}

func (s *LedgerService) projectPlan(ctx context.Context, plan *ledger.Plan) (*PlanResponse, error) {
	payments, err := s.repos.Payments.FindByInstallments(ctx, plan.InstallmentIDs())
	if err != nil {
		return nil, err
	}
	resp := ToPlanResponse(ledger.ProjectPlan(*plan, payments, s.now()))
	return &resp, nil
}

// GetInstallment returns one projected installment with its payments
func (s *LedgerService) GetInstallment(ctx context.Context, installmentID uuid.UUID) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "get_installment")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInstallmentID, installmentID.String())

	inst, err := s.repos.Installments.FindByID(ctx, installmentID)
	if err != nil {
		return nil, s.fail(ctx, span, "get_installment", err)
	}
	payments, err := s.repos.Payments.FindByInstallment(ctx, inst.ID)
	if err != nil {
		return nil, s.fail(ctx, span, "get_installment", err)
	}
	resp := ToInstallmentResponse(ledger.ProjectInstallment(*inst, payments, s.now()))
	return &resp, nil
}

// ListOverdueInstallments returns installments that are overdue on asOf, oldest period first.
// A zero asOf means today. The total counts every overdue installment, not just the page.
func (s *LedgerService) ListOverdueInstallments(ctx context.Context, asOf time.Time, page shared.Page) ([]InstallmentResponse, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "list_overdue_installments")
	defer span.End()

	if asOf.IsZero() {
		asOf = s.now()
	}
	page = page.Normalize()

	overdue, total, err := s.repos.Installments.FindOverdue(ctx, asOf, page)
	if err != nil {
		return nil, 0, s.fail(ctx, span, "list_overdue_installments", err)
	}
	ids := make([]uuid.UUID, len(overdue))
	for i := range overdue {
		ids[i] = overdue[i].ID
	}
	payments, err := s.repos.Payments.FindByInstallments(ctx, ids)
	if err != nil {
		return nil, 0, s.fail(ctx, span, "list_overdue_installments", err)
	}

	byInstallment := make(map[uuid.UUID][]ledger.Payment, len(overdue))
	for _, p := range payments {
		byInstallment[p.InstallmentID] = append(byInstallment[p.InstallmentID], p)
	}
	out := make([]InstallmentResponse, len(overdue))
	for i, inst := range overdue {
		out[i] = ToInstallmentResponse(ledger.ProjectInstallment(inst, byInstallment[inst.ID], asOf))
	}
	return out, total, nil
}

// ListUnverifiedPayments is the verification queue, oldest first.
// The total counts the whole queue.
func (s *LedgerService) ListUnverifiedPayments(ctx context.Context, page shared.Page) ([]PaymentResponse, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "list_unverified_payments")
	defer span.End()

	page = page.Normalize()
	payments, err := s.repos.Payments.FindUnverified(ctx, page)
	if err != nil {
		return nil, 0, s.fail(ctx, span, "list_unverified_payments", err)
	}
	total, err := s.repos.Payments.CountUnverified(ctx)
	if err != nil {
		return nil, 0, s.fail(ctx, span, "list_unverified_payments", err)
	}
	return ToPaymentResponses(payments), total, nil
}
// ListAuditEntries returns the audit trail of one plan, installment or payment in append order
func (s *LedgerService) ListAuditEntries(ctx context.Context, table string, subjectID uuid.UUID) ([]AuditEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "list_audit_entries")
	defer span.End()

	switch table {
	case ledger.SubjectPlans, ledger.SubjectInstallments, ledger.SubjectPayments:
	default:
		return nil, s.fail(ctx, span, "list_audit_entries",
			shared.NewInvalidInputError("unknown audit subject table "+table))
	}
	entries, err := s.repos.Audit.ListBySubject(ctx, table, subjectID)
	if err != nil {
		return nil, s.fail(ctx, span, "list_audit_entries", err)
	}
	return ToAuditEntryResponses(entries), nil
}
