package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var ledgerTestNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func ledgerDay(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

// newLedgerTestDB opens a private in-memory SQLite database with the ledger tables.
// A single connection keeps every statement, transactional or not, on the same database.
func newLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.EnrollmentModel{},
		&models.PlanModel{},
		&models.InstallmentModel{},
		&models.PaymentModel{},
		&models.AuditEntryModel{},
	))
	return db
}

func seedEnrollment(t *testing.T, db *gorm.DB, holder string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&models.EnrollmentModel{ID: id, HolderName: holder, CreatedAt: ledgerTestNow}).Error)
	return id
}

func newLedgerTestPlan(t *testing.T, enrollmentID uuid.UUID) *ledger.Plan {
	t.Helper()
	amount := decimal.NewFromInt(100)
	specs := []ledger.InstallmentSpec{
		{PeriodStart: ledgerDay(1, 1), PeriodEnd: ledgerDay(1, 31), Amount: amount},
		{PeriodStart: ledgerDay(2, 1), PeriodEnd: ledgerDay(2, 28), Amount: amount},
		{PeriodStart: ledgerDay(3, 1), PeriodEnd: ledgerDay(3, 31), Amount: amount},
	}
	plan, err := ledger.NewPlan(enrollmentID, decimal.NewFromInt(300), specs, nil, ledger.DefaultAmountEpsilon, ledgerTestNow)
	require.NoError(t, err)
	return plan
}

func persistLedgerTestPlan(t *testing.T, db *gorm.DB) *ledger.Plan {
	t.Helper()
	plan := newLedgerTestPlan(t, seedEnrollment(t, db, "Ana Rojas"))
	require.NoError(t, NewGormPlanRepository(db).Create(context.Background(), plan))
	return plan
}
