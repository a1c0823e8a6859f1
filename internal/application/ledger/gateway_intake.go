package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const gatewayKeyPrefix = "gateway:"

// PaymentRecorder is the part of LedgerService the gateway intake needs
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResponse, error)
}

// GatewayIntakeService turns payment gateway callbacks into unverified payments.
// Gateways redeliver; a reference is recorded at most once.
type GatewayIntakeService struct {
	recorder PaymentRecorder
	payments ledger.PaymentRepository
	store    shared.IdempotencyStore
	ttl      time.Duration
	logger   *zap.Logger
}

// NewGatewayIntakeService creates a GatewayIntakeService. A zero ttl uses the store default.
func NewGatewayIntakeService(recorder PaymentRecorder, payments ledger.PaymentRepository, store shared.IdempotencyStore, ttl time.Duration, l *zap.Logger) *GatewayIntakeService {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &GatewayIntakeService{recorder: recorder, payments: payments, store: store, ttl: ttl, logger: l}
}

// Ingest records the callback's payment unless its reference was already seen.
// The payments table is the source of truth; the idempotency store only narrows
// the window in which two deliveries of the same reference race each other.
func (g *GatewayIntakeService) Ingest(ctx context.Context, cb GatewayCallback) (*GatewayIntakeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "gateway_intake", "ingest")
	defer span.End()

	ref := strings.TrimSpace(cb.Reference)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReference, ref,
		telemetry.SpanAttrInstallmentID, cb.InstallmentID.String(),
	)
	if ref == "" {
		err := shared.NewInvalidInputError("gateway callbacks must carry a reference")
		telemetry.RecordError(span, err)
		return nil, err
	}

	if existing, err := g.existing(ctx, ref); err != nil || existing != nil {
		return existing, err
	}

	key := gatewayKeyPrefix + ref
	fresh, err := g.store.MarkProcessed(ctx, key, g.ttl)
	if err != nil {
		// the unique reference constraint still stops a double record
		g.logger.Warn("Gateway idempotency check failed", zap.String("reference", ref), zap.Error(err))
		fresh = true
	}
	if !fresh {
		if existing, err := g.existing(ctx, ref); err != nil || existing != nil {
			return existing, err
		}
		// marked by a delivery that failed before recording; try again
	}

	payment, err := g.recorder.RecordPayment(ctx, RecordPaymentRequest{
		InstallmentID:     cb.InstallmentID,
		Amount:            cb.Amount,
		Date:              cb.Date,
		Method:            cb.Method,
		ExternalReference: ref,
		Verified:          new(bool),
		Actor:             GatewayActor,
	})
	if err != nil {
		if ferr := g.store.Forget(ctx, key); ferr != nil {
			g.logger.Warn("Failed to release gateway reference", zap.String("reference", ref), zap.Error(ferr))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &GatewayIntakeResult{Payment: *payment}, nil
}

func (g *GatewayIntakeService) existing(ctx context.Context, ref string) (*GatewayIntakeResult, error) {
	p, err := g.payments.FindByExternalReference(ctx, ref)
	if shared.IsKind(err, shared.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.logger.Info("Duplicate gateway callback", zap.String("reference", ref), zap.String("payment_id", p.ID.String()))
	return &GatewayIntakeResult{Payment: ToPaymentResponse(p), Duplicate: true}, nil
}

var _ PaymentRecorder = (*LedgerService)(nil)
