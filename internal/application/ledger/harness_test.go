package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appledger "github.com/cuotas/backend/internal/application/ledger"
	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/infrastructure/persistence"
	"github.com/cuotas/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*ledger.PlanStateChangedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		if changed, ok := e.(*ledger.PlanStateChangedEvent); ok {
			p.events = append(p.events, changed)
		}
	}
	return nil
}

func (p *recordingPublisher) transitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Transition
	}
	return out
}

type harness struct {
	db     *gorm.DB
	svc    *appledger.LedgerService
	repos  appledger.Repositories
	scope  appledger.TransactionScope
	events *recordingPublisher
	clock  *testClock
}

func openLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
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

// newHarness builds the service over SQLite. The clock starts on 2026-01-10,
// before any installment of the standard plan falls due.
func newHarness(t *testing.T, opts ...appledger.LedgerServiceOption) *harness {
	t.Helper()
	db := openLedgerDB(t)
	h := &harness{
		db:     db,
		events: &recordingPublisher{},
		clock:  &testClock{now: time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)},
		scope:  persistence.NewGormLedgerTransactionScope(db),
		repos: appledger.Repositories{
			Plans:        persistence.NewGormPlanRepository(db),
			Installments: persistence.NewGormInstallmentRepository(db),
			Payments:     persistence.NewGormPaymentRepository(db),
			Audit:        persistence.NewGormAuditTrail(db),
			Enrollments:  persistence.NewGormEnrollmentDirectory(db),
		},
	}
	base := []appledger.LedgerServiceOption{
		appledger.WithClock(h.clock.Now),
		appledger.WithEventPublisher(h.events),
	}
	h.svc = appledger.NewLedgerService(h.scope, h.repos, append(base, opts...)...)
	return h
}

func (h *harness) enroll(t *testing.T, holder string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, h.db.Create(&models.EnrollmentModel{ID: id, HolderName: holder, CreatedAt: h.clock.Now()}).Error)
	return id
}

func standardSchedule() []appledger.InstallmentInput {
	return []appledger.InstallmentInput{
		{PeriodStart: day(1, 1), PeriodEnd: day(1, 31), Amount: dec("100.00")},
		{PeriodStart: day(2, 1), PeriodEnd: day(2, 28), Amount: dec("100.00")},
		{PeriodStart: day(3, 1), PeriodEnd: day(3, 31), Amount: dec("100.00")},
	}
}

// standardPlan creates the 3 x 100.00 plan for a new enrollment
func (h *harness) standardPlan(t *testing.T) *appledger.PlanResponse {
	t.Helper()
	plan, err := h.svc.CreatePlan(context.Background(), appledger.CreatePlanRequest{
		EnrollmentID:  h.enroll(t, "Ana Rojas"),
		DeclaredTotal: dec("300.00"),
		Installments:  standardSchedule(),
		Actor:         "admin@cuotas",
	})
	require.NoError(t, err)
	return plan
}

func (h *harness) pay(t *testing.T, installmentID uuid.UUID, amount string) *appledger.PaymentResponse {
	t.Helper()
	p, err := h.svc.RecordPayment(context.Background(), appledger.RecordPaymentRequest{
		InstallmentID: installmentID,
		Amount:        dec(amount),
		Date:          h.clock.Now(),
		Method:        ledger.PaymentMethodTransfer,
		Actor:         "admin@cuotas",
	})
	require.NoError(t, err)
	return p
}

func (h *harness) plan(t *testing.T, id uuid.UUID) *appledger.PlanResponse {
	t.Helper()
	p, err := h.svc.GetPlan(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

func (h *harness) audit(t *testing.T, table string, id uuid.UUID) []appledger.AuditEntryResponse {
	t.Helper()
	entries, err := h.svc.ListAuditEntries(context.Background(), table, id)
	require.NoError(t, err)
	return entries
}

func assertKind(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Truef(t, shared.IsKind(err, code), "want %s, got %v", code, err)
}

// assertTotalsConsistent re-reads the plan and checks declared total against the installment sum
func (h *harness) assertTotalsConsistent(t *testing.T, planID uuid.UUID) {
	t.Helper()
	p := h.plan(t, planID)
	sum := decimal.Zero
	for _, inst := range p.Installments {
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, p.DeclaredTotal.Equal(sum), "declared %s != installments %s", p.DeclaredTotal, sum)
}

var errAuditDown = errors.New("audit store unavailable")

type failingAuditSink struct{}

func (failingAuditSink) Append(ctx context.Context, entry ledger.AuditEntry) error {
	return errAuditDown
}

type failingAuditRepos struct {
	appledger.TransactionalRepositories
}

func (failingAuditRepos) AuditSink() ledger.AuditSink { return failingAuditSink{} }

// failingAuditScope runs real transactions whose audit sink always fails
type failingAuditScope struct {
	inner appledger.TransactionScope
}

func (s failingAuditScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.inner.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		return fn(failingAuditRepos{repos})
	})
}
