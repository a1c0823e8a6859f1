package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when LedgerMetrics is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerMetrics counts ledger activity.
type LedgerMetrics struct {
	paymentsRecorded *Counter
	amountRecorded   *FloatCounter
	verifications    *Counter
	rejections       *Counter
	penalties        *Counter
	refusals         *Counter
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	lm := &LedgerMetrics{}
	var err error
	if lm.paymentsRecorded, err = NewCounter(meter, "ledger_payments_recorded_total", "Payments recorded against installments", "{payments}"); err != nil {
		return nil, err
	}
	if lm.amountRecorded, err = NewFloatCounter(meter, "ledger_payment_amount_total", "Sum of recorded payment amounts", "{currency}"); err != nil {
		return nil, err
	}
	if lm.verifications, err = NewCounter(meter, "ledger_payments_verified_total", "Payments verified", "{payments}"); err != nil {
		return nil, err
	}
	if lm.rejections, err = NewCounter(meter, "ledger_payments_rejected_total", "Payments rejected and removed", "{payments}"); err != nil {
		return nil, err
	}
	if lm.penalties, err = NewCounter(meter, "ledger_penalties_applied_total", "Penalties applied to installments", "{penalties}"); err != nil {
		return nil, err
	}
	if lm.refusals, err = NewCounter(meter, "ledger_overpayment_refusals_total", "Payments refused for exceeding the outstanding balance", "{payments}"); err != nil {
		return nil, err
	}
	return lm, nil
}

// RecordPayment counts a committed payment and its amount.
func (lm *LedgerMetrics) RecordPayment(ctx context.Context, method string, amount decimal.Decimal) {
	if lm == nil {
		return
	}
	lm.paymentsRecorded.Inc(ctx, AttrPaymentMethod.String(method))
	lm.amountRecorded.Add(ctx, amount.InexactFloat64(), AttrPaymentMethod.String(method))
}

// RecordVerification counts a verified payment.
func (lm *LedgerMetrics) RecordVerification(ctx context.Context) {
	if lm == nil {
		return
	}
	lm.verifications.Inc(ctx)
}

// RecordRejection counts a rejected payment.
func (lm *LedgerMetrics) RecordRejection(ctx context.Context) {
	if lm == nil {
		return
	}
	lm.rejections.Inc(ctx)
}

// RecordPenalty counts an applied penalty.
func (lm *LedgerMetrics) RecordPenalty(ctx context.Context) {
	if lm == nil {
		return
	}
	lm.penalties.Inc(ctx)
}

// RecordOverpaymentRefusal counts a payment refused by the outstanding-balance check.
func (lm *LedgerMetrics) RecordOverpaymentRefusal(ctx context.Context, operation string) {
	if lm == nil {
		return
	}
	lm.refusals.Inc(ctx, AttrOperation.String(operation))
}
