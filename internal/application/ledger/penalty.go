package ledger

import (
	"context"
	"fmt"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ApplyPenalty raises an installment and its plan total by the same amount, keeping
// the total equal to the installment sum. There is no upper bound on the penalty.
func (s *LedgerService) ApplyPenalty(ctx context.Context, req ApplyPenaltyRequest) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "apply_penalty")
	defer span.End()

	actor := actorOrDefault(req.Actor)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInstallmentID, req.InstallmentID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrActor, actor,
	)

	if !req.Amount.IsPositive() {
		return nil, s.fail(ctx, span, "apply_penalty", shared.NewInvalidInputError("penalty amount must be positive"))
	}
	if err := ledger.ValidateReason(req.Reason, s.policy.MinReasonLength); err != nil {
		return nil, s.fail(ctx, span, "apply_penalty", err)
	}

	now := s.now()
	var projection ledger.InstallmentProjection
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		target, err := repos.InstallmentRepo().FindByID(ctx, req.InstallmentID)
		if err != nil {
			return err
		}
		// plan row first, then its installments: the order replacePlan takes
		plan, err := repos.PlanRepo().FindByIDForUpdate(ctx, target.PlanID)
		if err != nil {
			return err
		}
		previous, err := plan.ApplyPenalty(req.InstallmentID, req.Amount, now)
		if err != nil {
			return err
		}
		inst := plan.Installment(req.InstallmentID)
		if err := repos.InstallmentRepo().UpdateAmount(ctx, inst); err != nil {
			return err
		}
		if err := repos.PlanRepo().SaveTotals(ctx, plan); err != nil {
			return err
		}
		payments, err := repos.PaymentRepo().FindByInstallment(ctx, inst.ID)
		if err != nil {
			return err
		}
		projection = ledger.ProjectInstallment(*inst, payments, now)

		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectInstallments, inst.ID, actor,
			fmt.Sprintf("Applied penalty of %s to %s: amount %s -> %s, plan total now %s. Reason: %s",
				money(req.Amount), describeInstallment(plan, inst), money(previous), money(inst.Amount),
				money(plan.DeclaredTotal), req.Reason)))
	})
	if err != nil {
		return nil, s.fail(ctx, span, "apply_penalty", err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPlanID, projection.Installment.PlanID.String())
	s.metrics.RecordPenalty(ctx)
	s.log(ctx).Info("Penalty applied",
		zap.String("installment_id", req.InstallmentID.String()),
		zap.String("plan_id", projection.Installment.PlanID.String()),
		zap.String("amount", req.Amount.String()),
	)

	resp := ToInstallmentResponse(projection)
	return &resp, nil
}
