package ledger

import (
	"context"

	"github.com/cuotas/backend/internal/domain/ledger"
)

// TransactionScope runs ledger work atomically. Every row change made through the
// repositories handed to fn, audit entries included, commits together or not at all.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger repositories bound to one transaction
type TransactionalRepositories interface {
	PlanRepo() ledger.PlanRepository
	InstallmentRepo() ledger.InstallmentRepository
	PaymentRepo() ledger.PaymentRepository
	AuditSink() ledger.AuditSink
}
