package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordPayment appends a payment to an installment. The installment row is locked
// before its payments are summed, so concurrent recorders cannot overpay it.
func (s *LedgerService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "record_payment")
	defer span.End()

	actor := actorOrDefault(req.Actor)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInstallmentID, req.InstallmentID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrMethod, req.Method.String(),
		telemetry.SpanAttrActor, actor,
	)
	if req.ExternalReference != "" {
		telemetry.SetAttributes(span, telemetry.SpanAttrReference, req.ExternalReference)
	}

	now := s.now()
	payment, err := ledger.NewPayment(req.InstallmentID, req.Amount, req.Date, req.Method, req.ExternalReference, req.Notes, now)
	if err != nil {
		return nil, s.fail(ctx, span, "record_payment", err)
	}
	verified := s.policy.VerifyManualEntries
	if req.Verified != nil {
		verified = *req.Verified
	}
	if verified {
		if err := payment.Verify(actor, "", now); err != nil {
			return nil, s.fail(ctx, span, "record_payment", err)
		}
	}

	var plan *ledger.Plan
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inst, err := repos.InstallmentRepo().FindByIDForUpdate(ctx, req.InstallmentID)
		if err != nil {
			return err
		}
		existing, err := repos.PaymentRepo().FindByInstallment(ctx, inst.ID)
		if err != nil {
			return err
		}
		if err := inst.EnsureCovers(ledger.SumPayments(existing, uuid.Nil), payment.Amount); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
			return err
		}
		if plan, err = repos.PlanRepo().FindByID(ctx, inst.PlanID); err != nil {
			return err
		}

		msg := fmt.Sprintf("Recorded payment of %s (%s) on %s for %s",
			money(payment.Amount), payment.Method, payment.Date.Format(time.DateOnly), describeInstallment(plan, inst))
		if payment.ExternalReference != "" {
			msg += ", reference " + payment.ExternalReference
		}
		if payment.Verified {
			msg += ", verified on entry"
			plan.RaiseStateChanged(payment, ledger.TransitionRecordedVerified, now)
		}
		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectPayments, payment.ID, actor, msg))
	})
	if err != nil {
		return nil, s.fail(ctx, span, "record_payment", err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, payment.ID.String(), telemetry.SpanAttrPlanID, plan.ID.String())
	s.metrics.RecordPayment(ctx, payment.Method.String(), payment.Amount)
	if payment.Verified {
		s.metrics.RecordVerification(ctx)
	}
	s.publishPending(ctx, plan)
	s.log(ctx).Info("Payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("installment_id", payment.InstallmentID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.Bool("verified", payment.Verified),
	)

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// UpdatePayment edits a payment. A new amount must fit in the installment together
// with the other payments; a verified payment only accepts a notes change.
func (s *LedgerService) UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "update_payment")
	defer span.End()

	actor := actorOrDefault(req.Actor)
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, req.PaymentID.String(), telemetry.SpanAttrActor, actor)

	changes := ledger.PaymentChanges{Amount: req.Amount, Date: req.Date, Method: req.Method, Notes: req.Notes}
	if err := changes.Validate(); err != nil {
		return nil, s.fail(ctx, span, "update_payment", err)
	}

	now := s.now()
	var payment *ledger.Payment
	var diff []string
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		current, err := repos.PaymentRepo().FindByID(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		// installment first, then the payment: the same order recordPayment takes
		inst, err := repos.InstallmentRepo().FindByIDForUpdate(ctx, current.InstallmentID)
		if err != nil {
			return err
		}
		if payment, err = repos.PaymentRepo().FindByIDForUpdate(ctx, req.PaymentID); err != nil {
			return err
		}

		if diff, err = payment.Apply(changes, now); err != nil {
			return err
		}
		if len(diff) == 0 {
			return nil
		}
		if changes.Amount != nil {
			others, err := repos.PaymentRepo().FindByInstallment(ctx, inst.ID)
			if err != nil {
				return err
			}
			if err := inst.EnsureCovers(ledger.SumPayments(others, payment.ID), payment.Amount); err != nil {
				return err
			}
		}
		if err := repos.PaymentRepo().Update(ctx, payment); err != nil {
			return err
		}
		plan, err := repos.PlanRepo().FindByID(ctx, inst.PlanID)
		if err != nil {
			return err
		}
		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectPayments, payment.ID, actor,
			fmt.Sprintf("Updated payment on %s: %s", describeInstallment(plan, inst), strings.Join(diff, "; "))))
	})
	if err != nil {
		return nil, s.fail(ctx, span, "update_payment", err)
	}

	if len(diff) > 0 {
		s.log(ctx).Info("Payment updated",
			zap.String("payment_id", payment.ID.String()),
			zap.Strings("changes", diff),
		)
	}

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// DeletePayment removes a payment without the rejection workflow. It is still audited
// and still tells the enrollment side that completion may have changed.
func (s *LedgerService) DeletePayment(ctx context.Context, paymentID uuid.UUID, actor string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "delete_payment")
	defer span.End()

	actor = actorOrDefault(actor)
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID.String(), telemetry.SpanAttrActor, actor)

	now := s.now()
	var payment *ledger.Payment
	var plan *ledger.Plan
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if payment, err = repos.PaymentRepo().FindByIDForUpdate(ctx, paymentID); err != nil {
			return err
		}
		var inst *ledger.Installment
		if plan, inst, err = ownerOf(ctx, repos, payment.InstallmentID); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Delete(ctx, payment.ID); err != nil {
			return err
		}
		plan.RaiseStateChanged(payment, ledger.TransitionDeleted, now)
		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectPayments, payment.ID, actor,
			fmt.Sprintf("Deleted payment of %s (%s) dated %s from %s",
				money(payment.Amount), payment.Method, payment.Date.Format(time.DateOnly), describeInstallment(plan, inst))))
	})
	if err != nil {
		return s.fail(ctx, span, "delete_payment", err)
	}

	s.publishPending(ctx, plan)
	s.log(ctx).Info("Payment deleted",
		zap.String("payment_id", payment.ID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.String("amount", payment.Amount.String()),
	)
	return nil
}
