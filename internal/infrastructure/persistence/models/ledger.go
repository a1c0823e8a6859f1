package models

import (
	"time"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EnrollmentModel is the enrollment row the ledger reads; the enrollment side owns it
type EnrollmentModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	HolderName string    `gorm:"type:varchar(200);not null;default:''"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EnrollmentModel) TableName() string {
	return "enrollments"
}

// PlanModel is the persistence model for the Plan aggregate root
type PlanModel struct {
	AggregateModel
	EnrollmentID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	DeclaredTotal            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DeclaredInstallmentCount int             `gorm:"not null"`
	HolderLabel              string          `gorm:"type:varchar(200);not null;default:''"`
}

// TableName returns the table name for GORM
func (PlanModel) TableName() string {
	return ledger.SubjectPlans
}

// ToDomain converts the model to a plan without installments
func (m *PlanModel) ToDomain() *ledger.Plan {
	return &ledger.Plan{
		BaseAggregateRoot:        m.ToDomainAggregateRoot(),
		EnrollmentID:             m.EnrollmentID,
		DeclaredTotal:            m.DeclaredTotal,
		DeclaredInstallmentCount: m.DeclaredInstallmentCount,
		HolderLabel:              m.HolderLabel,
	}
}

// FromDomain populates the model from a plan
func (m *PlanModel) FromDomain(p *ledger.Plan) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.EnrollmentID = p.EnrollmentID
	m.DeclaredTotal = p.DeclaredTotal
	m.DeclaredInstallmentCount = p.DeclaredInstallmentCount
	m.HolderLabel = p.HolderLabel
}

// PlanModelFromDomain creates a new persistence model from a plan
func PlanModelFromDomain(p *ledger.Plan) *PlanModel {
	m := &PlanModel{}
	m.FromDomain(p)
	return m
}

// InstallmentModel is the persistence model for an installment
type InstallmentModel struct {
	BaseModel
	PlanID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Sequence    int             `gorm:"not null"`
	PeriodStart time.Time       `gorm:"type:date;not null"`
	PeriodEnd   time.Time       `gorm:"type:date;not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return ledger.SubjectInstallments
}

// ToDomain converts the model to a domain installment
func (m *InstallmentModel) ToDomain() ledger.Installment {
	return ledger.Installment{
		BaseEntity:  m.BaseModel.ToDomain(),
		PlanID:      m.PlanID,
		Sequence:    m.Sequence,
		PeriodStart: ledger.DateOf(m.PeriodStart),
		PeriodEnd:   ledger.DateOf(m.PeriodEnd),
		Amount:      m.Amount,
	}
}

// InstallmentModelFromDomain creates a new persistence model from an installment
func InstallmentModelFromDomain(i *ledger.Installment) *InstallmentModel {
	m := &InstallmentModel{
		PlanID:      i.PlanID,
		Sequence:    i.Sequence,
		PeriodStart: ledger.DateOf(i.PeriodStart),
		PeriodEnd:   ledger.DateOf(i.PeriodEnd),
		Amount:      i.Amount,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}

// PaymentModel is the persistence model for a payment
type PaymentModel struct {
	BaseModel
	InstallmentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaidOn            time.Time       `gorm:"type:date;not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method            string          `gorm:"type:varchar(20);not null"`
	ExternalReference *string         `gorm:"type:varchar(100);uniqueIndex"`
	Verified          bool            `gorm:"not null;default:false;index"`
	VerifiedAt        *time.Time
	VerifiedBy        string `gorm:"type:varchar(100);not null;default:''"`
	Notes             string `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return ledger.SubjectPayments
}

// ToDomain converts the model to a domain payment
func (m *PaymentModel) ToDomain() ledger.Payment {
	p := ledger.Payment{
		BaseEntity:    m.BaseModel.ToDomain(),
		InstallmentID: m.InstallmentID,
		Date:          ledger.DateOf(m.PaidOn),
		Amount:        m.Amount,
		Method:        ledger.PaymentMethod(m.Method),
		Verified:      m.Verified,
		VerifiedAt:    m.VerifiedAt,
		VerifiedBy:    m.VerifiedBy,
		Notes:         m.Notes,
	}
	if m.ExternalReference != nil {
		p.ExternalReference = *m.ExternalReference
	}
	return p
}

// FromDomain populates the model from a payment
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.InstallmentID = p.InstallmentID
	m.PaidOn = ledger.DateOf(p.Date)
	m.Amount = p.Amount
	m.Method = string(p.Method)
	m.ExternalReference = nil
	if p.ExternalReference != "" {
		ref := p.ExternalReference
		m.ExternalReference = &ref
	}
	m.Verified = p.Verified
	m.VerifiedAt = p.VerifiedAt
	m.VerifiedBy = p.VerifiedBy
	m.Notes = p.Notes
}

// PaymentModelFromDomain creates a new persistence model from a payment
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AuditEntryModel is one append-only audit row
type AuditEntryModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	OccurredAt   time.Time `gorm:"not null"`
	SubjectTable string    `gorm:"type:varchar(50);not null;index:idx_audit_subject"`
	SubjectID    uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_subject"`
	Actor        string    `gorm:"type:varchar(100);not null"`
	Message      string    `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// ToDomain converts the model to a domain audit entry
func (m *AuditEntryModel) ToDomain() ledger.AuditEntry {
	return ledger.AuditEntry{
		ID:           m.ID,
		OccurredAt:   m.OccurredAt,
		SubjectTable: m.SubjectTable,
		SubjectID:    m.SubjectID,
		Actor:        m.Actor,
		Message:      m.Message,
	}
}

// AuditEntryModelFromDomain creates a new persistence model from an audit entry
func AuditEntryModelFromDomain(e ledger.AuditEntry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:           e.ID,
		OccurredAt:   e.OccurredAt,
		SubjectTable: e.SubjectTable,
		SubjectID:    e.SubjectID,
		Actor:        e.Actor,
		Message:      e.Message,
	}
}
