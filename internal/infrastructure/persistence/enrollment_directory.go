package persistence

import (
	"context"
	"errors"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEnrollmentDirectory reads the enrollments table owned by the enrollment side
type GormEnrollmentDirectory struct {
	db *gorm.DB
}

// NewGormEnrollmentDirectory creates a new GormEnrollmentDirectory
func NewGormEnrollmentDirectory(db *gorm.DB) *GormEnrollmentDirectory {
	return &GormEnrollmentDirectory{db: db}
}

// EnrollmentExists checks whether the enrollment row exists
func (d *GormEnrollmentDirectory) EnrollmentExists(ctx context.Context, enrollmentID uuid.UUID) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.EnrollmentModel{}).
		Where("id = ?", enrollmentID).
		Count(&count).Error; err != nil {
		return false, storageError("check enrollment", err)
	}
	return count > 0, nil
}

// HolderLabel returns the holder name, or "" when the enrollment is unknown
func (d *GormEnrollmentDirectory) HolderLabel(ctx context.Context, enrollmentID uuid.UUID) (string, error) {
	var model models.EnrollmentModel
	if err := d.db.WithContext(ctx).Select("id", "holder_name").Where("id = ?", enrollmentID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", storageError("load enrollment holder", err)
	}
	return model.HolderName, nil
}

// Ensure GormEnrollmentDirectory implements EnrollmentDirectory
var _ ledger.EnrollmentDirectory = (*GormEnrollmentDirectory)(nil)
