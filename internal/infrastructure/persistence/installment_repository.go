package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInstallmentRepository implements InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByID finds an installment by ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Installment, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an installment and holds its row lock until the transaction ends.
// This is the serialization point for concurrent payments on the same installment.
func (r *GormInstallmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Installment, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormInstallmentRepository) find(db *gorm.DB, id uuid.UUID) (*ledger.Installment, error) {
	var model models.InstallmentModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("installment", id)
		}
		return nil, storageError("load installment", err)
	}
	inst := model.ToDomain()
	return &inst, nil
}

// overdueOutstanding keeps installments whose recorded payments fall short of the amount.
// Sums are rounded to the stored money scale so SQLite float sums compare like NUMERIC.
const overdueOutstanding = "installments.amount > COALESCE(ROUND((SELECT SUM(payments.amount) FROM payments WHERE payments.installment_id = installments.id), 4), 0)"

// FindOverdue pages through installments whose period ended before date and that still
// have something outstanding, oldest period first. The count covers every match.
func (r *GormInstallmentRepository) FindOverdue(ctx context.Context, date time.Time, page shared.Page) ([]ledger.Installment, int64, error) {
	page = page.Normalize()
	query := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("installments.period_end < ?", ledger.DateOf(date)).
		Where(overdueOutstanding)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, storageError("count overdue installments", err)
	}
	if total == 0 {
		return []ledger.Installment{}, 0, nil
	}

	var rows []models.InstallmentModel
	if err := query.Session(&gorm.Session{}).
		Order("installments.period_end ASC, installments.sequence ASC, installments.id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, storageError("list overdue installments", err)
	}
	out := make([]ledger.Installment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// UpdateAmount persists a changed installment amount
func (r *GormInstallmentRepository) UpdateAmount(ctx context.Context, inst *ledger.Installment) error {
	result := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("id = ?", inst.ID).
		Updates(map[string]interface{}{
			"amount":     inst.Amount,
			"updated_at": inst.UpdatedAt,
		})
	if result.Error != nil {
		return storageError("update installment amount", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("installment", inst.ID)
	}
	return nil
}

// Ensure GormInstallmentRepository implements InstallmentRepository
var _ ledger.InstallmentRepository = (*GormInstallmentRepository)(nil)
