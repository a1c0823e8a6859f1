package ledger

import (
	"context"
	"fmt"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreatePlan builds the schedule of an enrollment. The plan and all installments are
// inserted in one transaction.
func (s *LedgerService) CreatePlan(ctx context.Context, req CreatePlanRequest) (*PlanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "create_plan")
	defer span.End()

	actor := actorOrDefault(req.Actor)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEnrollmentID, req.EnrollmentID.String(),
		telemetry.SpanAttrAmount, req.DeclaredTotal.String(),
		telemetry.SpanAttrActor, actor,
	)

	now := s.now()
	plan, err := ledger.NewPlan(req.EnrollmentID, req.DeclaredTotal, toSpecs(req.Installments), req.DeclaredInstallmentCount, s.policy.AmountEpsilon, now)
	if err != nil {
		return nil, s.fail(ctx, span, "create_plan", err)
	}

	exists, err := s.repos.Enrollments.EnrollmentExists(ctx, req.EnrollmentID)
	if err != nil {
		return nil, s.fail(ctx, span, "create_plan", err)
	}
	if !exists {
		return nil, s.fail(ctx, span, "create_plan", shared.NewNotFoundError("enrollment", req.EnrollmentID))
	}
	if plan.HolderLabel, err = s.repos.Enrollments.HolderLabel(ctx, req.EnrollmentID); err != nil {
		return nil, s.fail(ctx, span, "create_plan", err)
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		taken, err := repos.PlanRepo().ExistsForEnrollment(ctx, req.EnrollmentID)
		if err != nil {
			return err
		}
		if taken {
			return shared.NewDomainError(shared.CodeDuplicatePlan,
				fmt.Sprintf("enrollment %s already has a payment plan", req.EnrollmentID))
		}
		if err := repos.PlanRepo().Create(ctx, plan); err != nil {
			return err
		}
		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectPlans, plan.ID, actor,
			fmt.Sprintf("Created payment plan for %s: total %s in %d installments",
				plan.Describe(), money(plan.DeclaredTotal), plan.DeclaredInstallmentCount)))
	})
	if err != nil {
		return nil, s.fail(ctx, span, "create_plan", err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPlanID, plan.ID.String())
	s.log(ctx).Info("Payment plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("enrollment_id", plan.EnrollmentID.String()),
		zap.String("amount", plan.DeclaredTotal.String()),
		zap.Int("installments", plan.DeclaredInstallmentCount),
	)

	resp := ToPlanResponse(ledger.ProjectPlan(*plan, nil, now))
	return &resp, nil
}

// ReplacePlan swaps every installment of a plan for a new schedule.
// It fails with PLAN_HAS_PAYMENTS once any installment has a payment.
func (s *LedgerService) ReplacePlan(ctx context.Context, req ReplacePlanRequest) (*PlanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "replace_plan")
	defer span.End()

	actor := actorOrDefault(req.Actor)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPlanID, req.PlanID.String(),
		telemetry.SpanAttrAmount, req.DeclaredTotal.String(),
		telemetry.SpanAttrActor, actor,
	)

	specs := toSpecs(req.Installments)
	if _, err := ledger.ValidateSchedule(req.DeclaredTotal, specs, req.DeclaredInstallmentCount, s.policy.AmountEpsilon); err != nil {
		return nil, s.fail(ctx, span, "replace_plan", err)
	}

	now := s.now()
	var plan *ledger.Plan
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		plan, err = repos.PlanRepo().FindByIDForUpdate(ctx, req.PlanID)
		if err != nil {
			return err
		}
		if err := ensureNoPayments(ctx, repos, plan); err != nil {
			return err
		}

		previousTotal, previousCount := plan.DeclaredTotal, plan.DeclaredInstallmentCount
		if err := plan.Replace(req.DeclaredTotal, specs, req.DeclaredInstallmentCount, s.policy.AmountEpsilon, now); err != nil {
			return err
		}
		if err := repos.PlanRepo().ReplaceInstallments(ctx, plan); err != nil {
			return err
		}
		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectPlans, plan.ID, actor,
			fmt.Sprintf("Replaced payment plan of %s: total %s in %d installments -> %s in %d installments",
				plan.Describe(), money(previousTotal), previousCount, money(plan.DeclaredTotal), plan.DeclaredInstallmentCount)))
	})
	if err != nil {
		return nil, s.fail(ctx, span, "replace_plan", err)
	}

	s.log(ctx).Info("Payment plan replaced",
		zap.String("plan_id", plan.ID.String()),
		zap.String("amount", plan.DeclaredTotal.String()),
		zap.Int("installments", plan.DeclaredInstallmentCount),
	)

	resp := ToPlanResponse(ledger.ProjectPlan(*plan, nil, now))
	return &resp, nil
}

// DeletePlan removes a plan and its installments when no installment has a payment
func (s *LedgerService) DeletePlan(ctx context.Context, planID uuid.UUID, actor string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "delete_plan")
	defer span.End()

	actor = actorOrDefault(actor)
	telemetry.SetAttributes(span, telemetry.SpanAttrPlanID, planID.String(), telemetry.SpanAttrActor, actor)

	now := s.now()
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		plan, err := repos.PlanRepo().FindByIDForUpdate(ctx, planID)
		if err != nil {
			return err
		}
		if err := ensureNoPayments(ctx, repos, plan); err != nil {
			return err
		}
		if err := repos.PlanRepo().Delete(ctx, plan.ID); err != nil {
			return err
		}
		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectPlans, plan.ID, actor,
			fmt.Sprintf("Deleted payment plan of %s (total %s, %d installments)",
				plan.Describe(), money(plan.DeclaredTotal), plan.DeclaredInstallmentCount)))
	})
	if err != nil {
		return s.fail(ctx, span, "delete_plan", err)
	}

	s.log(ctx).Info("Payment plan deleted", zap.String("plan_id", planID.String()))
	return nil
}

func ensureNoPayments(ctx context.Context, repos TransactionalRepositories, plan *ledger.Plan) error {
	count, err := repos.PaymentRepo().CountByInstallments(ctx, plan.InstallmentIDs())
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError(shared.CodePlanHasPayments,
			fmt.Sprintf("plan %s has %d recorded payments", plan.ID, count))
	}
	return nil
}
