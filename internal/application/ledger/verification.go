package ledger

import (
	"context"
	"fmt"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// VerifyPayment moves a payment to Verified. Verification is one-way; a second call
// fails with ALREADY_VERIFIED.
func (s *LedgerService) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "verify_payment")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, req.PaymentID.String(), telemetry.SpanAttrActor, req.Verifier)

	verifier, err := requireVerifier(req.Verifier)
	if err != nil {
		return nil, s.fail(ctx, span, "verify_payment", err)
	}

	now := s.now()
	var payment *ledger.Payment
	var plan *ledger.Plan
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if payment, err = repos.PaymentRepo().FindByIDForUpdate(ctx, req.PaymentID); err != nil {
			return err
		}
		if err := payment.Verify(verifier, req.Notes, now); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Update(ctx, payment); err != nil {
			return err
		}
		var inst *ledger.Installment
		if plan, inst, err = ownerOf(ctx, repos, payment.InstallmentID); err != nil {
			return err
		}
		plan.RaiseStateChanged(payment, ledger.TransitionVerified, now)
		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectPayments, payment.ID, verifier,
			fmt.Sprintf("Verified payment of %s (%s) from %s, verified by %s",
				money(payment.Amount), payment.Method, describeInstallment(plan, inst), verifier)))
	})
	if err != nil {
		return nil, s.fail(ctx, span, "verify_payment", err)
	}

	s.metrics.RecordVerification(ctx)
	s.publishPending(ctx, plan)
	s.log(ctx).Info("Payment verified",
		zap.String("payment_id", payment.ID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.String("verifier", verifier),
	)

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// RejectPayment removes an unverified payment and records the reason.
// A verified payment cannot be rejected.
func (s *LedgerService) RejectPayment(ctx context.Context, req RejectPaymentRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "reject_payment")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, req.PaymentID.String(), telemetry.SpanAttrActor, req.Verifier)

	verifier, err := requireVerifier(req.Verifier)
	if err != nil {
		return s.fail(ctx, span, "reject_payment", err)
	}
	if err := ledger.ValidateReason(req.Reason, s.policy.MinReasonLength); err != nil {
		return s.fail(ctx, span, "reject_payment", err)
	}

	now := s.now()
	var payment *ledger.Payment
	var plan *ledger.Plan
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if payment, err = repos.PaymentRepo().FindByIDForUpdate(ctx, req.PaymentID); err != nil {
			return err
		}
		if err := payment.EnsureRejectable(); err != nil {
			return err
		}
		var inst *ledger.Installment
		if plan, inst, err = ownerOf(ctx, repos, payment.InstallmentID); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Delete(ctx, payment.ID); err != nil {
			return err
		}
		plan.RaiseStateChanged(payment, ledger.TransitionRejected, now)
		return repos.AuditSink().Append(ctx, ledger.NewAuditEntry(now, ledger.SubjectPayments, payment.ID, verifier,
			fmt.Sprintf("Rejected payment of %s (%s) from %s, rejected by %s. Reason: %s",
				money(payment.Amount), payment.Method, describeInstallment(plan, inst), verifier, req.Reason)))
	})
	if err != nil {
		return s.fail(ctx, span, "reject_payment", err)
	}

	s.metrics.RecordRejection(ctx)
	s.publishPending(ctx, plan)
	s.log(ctx).Info("Payment rejected",
		zap.String("payment_id", payment.ID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.String("verifier", verifier),
	)
	return nil
}
