package persistence

import (
	"context"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditTrail stores audit entries in the audit_entries table.
// Inside a transaction scope an append commits or rolls back with the mutation it describes.
type GormAuditTrail struct {
	db *gorm.DB
}

// NewGormAuditTrail creates a new GormAuditTrail
func NewGormAuditTrail(db *gorm.DB) *GormAuditTrail {
	return &GormAuditTrail{db: db}
}

// Append writes one entry
func (r *GormAuditTrail) Append(ctx context.Context, entry ledger.AuditEntry) error {
	if err := r.db.WithContext(ctx).Create(models.AuditEntryModelFromDomain(entry)).Error; err != nil {
		return storageError("append audit entry", err)
	}
	return nil
}

// ListBySubject returns the entries of one subject in append order
func (r *GormAuditTrail) ListBySubject(ctx context.Context, table string, subjectID uuid.UUID) ([]ledger.AuditEntry, error) {
	var rows []models.AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("subject_table = ? AND subject_id = ?", table, subjectID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("list audit entries", err)
	}
	out := make([]ledger.AuditEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormAuditTrail implements AuditTrail
var _ ledger.AuditTrail = (*GormAuditTrail)(nil)
