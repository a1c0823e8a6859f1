package persistence

import (
	"context"
	"errors"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPlanRepository implements PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID loads a plan and its installments in schedule order
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Plan, error) {
	return r.load(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate locks the plan row, then its installment rows, before loading
func (r *GormPlanRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Plan, error) {
	locked := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Session(&gorm.Session{})
	return r.load(locked, "id = ?", id)
}

// FindByEnrollment loads the plan owned by an enrollment
func (r *GormPlanRepository) FindByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*ledger.Plan, error) {
	return r.load(r.db.WithContext(ctx), "enrollment_id = ?", enrollmentID)
}

// ExistsForEnrollment checks whether the enrollment already owns a plan
func (r *GormPlanRepository) ExistsForEnrollment(ctx context.Context, enrollmentID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PlanModel{}).
		Where("enrollment_id = ?", enrollmentID).
		Count(&count).Error; err != nil {
		return false, storageError("check plan for enrollment", err)
	}
	return count > 0, nil
}

func (r *GormPlanRepository) load(db *gorm.DB, query string, arg interface{}) (*ledger.Plan, error) {
	var model models.PlanModel
	if err := db.Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "payment plan not found")
		}
		return nil, storageError("load plan", err)
	}

	var rows []models.InstallmentModel
	if err := db.Where("plan_id = ?", model.ID).Order("sequence ASC").Find(&rows).Error; err != nil {
		return nil, storageError("load installments", err)
	}

	plan := model.ToDomain()
	plan.Installments = make([]ledger.Installment, len(rows))
	for i := range rows {
		plan.Installments[i] = rows[i].ToDomain()
	}
	return plan, nil
}

// Create inserts the plan and all installments. Callers run it inside a transaction scope.
func (r *GormPlanRepository) Create(ctx context.Context, plan *ledger.Plan) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(models.PlanModelFromDomain(plan)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeDuplicatePlan, "enrollment "+plan.EnrollmentID.String()+" already has a payment plan")
		}
		return storageError("create plan", err)
	}
	return storageError("create installments", createInstallments(db, plan.Installments))
}

// ReplaceInstallments saves plan totals and swaps the stored schedule for plan.Installments.
// Callers run it inside a transaction scope.
func (r *GormPlanRepository) ReplaceInstallments(ctx context.Context, plan *ledger.Plan) error {
	db := r.db.WithContext(ctx)
	if err := saveTotals(db, plan); err != nil {
		return storageError("replace installments", err)
	}
	if err := db.Where("plan_id = ?", plan.ID).Delete(&models.InstallmentModel{}).Error; err != nil {
		return storageError("replace installments", err)
	}
	return storageError("replace installments", createInstallments(db, plan.Installments))
}

// SaveTotals saves the declared total and count, guarded by the plan version
func (r *GormPlanRepository) SaveTotals(ctx context.Context, plan *ledger.Plan) error {
	return storageError("save plan totals", saveTotals(r.db.WithContext(ctx), plan))
}

// Delete removes the plan and its installments
func (r *GormPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("plan_id = ?", id).Delete(&models.InstallmentModel{}).Error; err != nil {
		return storageError("delete installments", err)
	}
	result := db.Where("id = ?", id).Delete(&models.PlanModel{})
	if result.Error != nil {
		return storageError("delete plan", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("payment plan", id)
	}
	return nil
}

// saveTotals expects plan.Version to have been incremented by the domain change
func saveTotals(tx *gorm.DB, plan *ledger.Plan) error {
	result := tx.Model(&models.PlanModel{}).
		Where("id = ? AND version = ?", plan.ID, plan.Version-1).
		Updates(map[string]interface{}{
			"declared_total":             plan.DeclaredTotal,
			"declared_installment_count": plan.DeclaredInstallmentCount,
			"version":                    plan.Version,
			"updated_at":                 plan.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewStorageError("save plan totals", errors.New("plan was modified concurrently"))
	}
	return nil
}

func createInstallments(tx *gorm.DB, installments []ledger.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	rows := make([]*models.InstallmentModel, len(installments))
	for i := range installments {
		rows[i] = models.InstallmentModelFromDomain(&installments[i])
	}
	return tx.Create(rows).Error
}

// Ensure GormPlanRepository implements PlanRepository
var _ ledger.PlanRepository = (*GormPlanRepository)(nil)
