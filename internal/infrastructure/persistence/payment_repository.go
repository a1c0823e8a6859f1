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

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a payment and holds its row lock until the transaction ends
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPaymentRepository) find(db *gorm.DB, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("payment", id)
		}
		return nil, storageError("load payment", err)
	}
	p := model.ToDomain()
	return &p, nil
}

// FindByInstallment lists the payments of one installment in recording order
func (r *GormPaymentRepository) FindByInstallment(ctx context.Context, installmentID uuid.UUID) ([]ledger.Payment, error) {
	return r.findWhere(ctx, "installment_id = ?", installmentID)
}

// FindByInstallments lists the payments of several installments
func (r *GormPaymentRepository) FindByInstallments(ctx context.Context, installmentIDs []uuid.UUID) ([]ledger.Payment, error) {
	if len(installmentIDs) == 0 {
		return []ledger.Payment{}, nil
	}
	return r.findWhere(ctx, "installment_id IN ?", installmentIDs)
}

func (r *GormPaymentRepository) findWhere(ctx context.Context, query string, arg interface{}) ([]ledger.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).Where(query, arg).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, storageError("list payments", err)
	}
	return toDomainPayments(rows), nil
}

// FindByExternalReference finds the payment carrying a gateway reference
func (r *GormPaymentRepository) FindByExternalReference(ctx context.Context, reference string) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).Where("external_reference = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "no payment with reference "+reference)
		}
		return nil, storageError("load payment by reference", err)
	}
	p := model.ToDomain()
	return &p, nil
}

// FindUnverified lists unverified payments, oldest first
func (r *GormPaymentRepository) FindUnverified(ctx context.Context, page shared.Page) ([]ledger.Payment, error) {
	page = page.Normalize()
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("verified = ?", false).
		Order("created_at ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, storageError("list unverified payments", err)
	}
	return toDomainPayments(rows), nil
}

// CountUnverified counts the whole verification queue
func (r *GormPaymentRepository) CountUnverified(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("verified = ?", false).
		Count(&count).Error; err != nil {
		return 0, storageError("count unverified payments", err)
	}
	return count, nil
}

// CountByInstallments counts payments recorded on any of the installments
func (r *GormPaymentRepository) CountByInstallments(ctx context.Context, installmentIDs []uuid.UUID) (int64, error) {
	if len(installmentIDs) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("installment_id IN ?", installmentIDs).
		Count(&count).Error; err != nil {
		return 0, storageError("count payments", err)
	}
	return count, nil
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *ledger.Payment) error {
	if err := r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewInvalidInputError("external reference " + payment.ExternalReference + " is already recorded")
		}
		return storageError("create payment", err)
	}
	return nil
}

// Update saves every mutable payment column
func (r *GormPaymentRepository) Update(ctx context.Context, payment *ledger.Payment) error {
	m := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("id = ?", payment.ID).
		Updates(map[string]interface{}{
			"paid_on":     m.PaidOn,
			"amount":      m.Amount,
			"method":      m.Method,
			"verified":    m.Verified,
			"verified_at": m.VerifiedAt,
			"verified_by": m.VerifiedBy,
			"notes":       m.Notes,
			"updated_at":  m.UpdatedAt,
		})
	if result.Error != nil {
		return storageError("update payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("payment", payment.ID)
	}
	return nil
}

// Delete removes a payment
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PaymentModel{})
	if result.Error != nil {
		return storageError("delete payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("payment", id)
	}
	return nil
}

func toDomainPayments(rows []models.PaymentModel) []ledger.Payment {
	out := make([]ledger.Payment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
