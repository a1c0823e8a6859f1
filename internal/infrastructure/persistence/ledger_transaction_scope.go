package persistence

import (
	"context"

	appledger "github.com/cuotas/backend/internal/application/ledger"
	"github.com/cuotas/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormLedgerTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to fn shares the transaction, audit sink included.
type GormLedgerTransactionScope struct {
	db *gorm.DB
}

// NewGormLedgerTransactionScope creates a new GormLedgerTransactionScope
func NewGormLedgerTransactionScope(db *gorm.DB) *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// A returned error rolls back; domain errors pass through and everything else becomes STORAGE_FAILURE.
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerRepositories{tx: tx})
	})
	return storageError("transaction", err)
}

type gormLedgerRepositories struct {
	tx *gorm.DB
}

// PlanRepo returns the plan repository scoped to the current transaction
func (r *gormLedgerRepositories) PlanRepo() ledger.PlanRepository {
	return NewGormPlanRepository(r.tx)
}

// InstallmentRepo returns the installment repository scoped to the current transaction
func (r *gormLedgerRepositories) InstallmentRepo() ledger.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction
func (r *gormLedgerRepositories) PaymentRepo() ledger.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// AuditSink returns the audit sink scoped to the current transaction
func (r *gormLedgerRepositories) AuditSink() ledger.AuditSink {
	return NewGormAuditTrail(r.tx)
}

// Ensure GormLedgerTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormLedgerTransactionScope)(nil)

// Ensure gormLedgerRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormLedgerRepositories)(nil)
