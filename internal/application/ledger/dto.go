package ledger

import (
	"time"

	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultActor is recorded in the audit log when a caller does not identify itself
const DefaultActor = "system"

// GatewayActor is the audit identity of payments that arrive through gateway callbacks
const GatewayActor = "gateway"

// InstallmentInput describes one due of a new or replacement schedule
type InstallmentInput struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Amount      decimal.Decimal
}

// CreatePlanRequest creates the plan of an enrollment
type CreatePlanRequest struct {
	EnrollmentID             uuid.UUID
	DeclaredTotal            decimal.Decimal
	DeclaredInstallmentCount *int
	Installments             []InstallmentInput
	Actor                    string
}

// ReplacePlanRequest swaps the whole schedule of a plan
type ReplacePlanRequest struct {
	PlanID                   uuid.UUID
	DeclaredTotal            decimal.Decimal
	DeclaredInstallmentCount *int
	Installments             []InstallmentInput
	Actor                    string
}

// RecordPaymentRequest appends a payment to an installment.
// Verified nil means the configured default for manual entries.
type RecordPaymentRequest struct {
	InstallmentID     uuid.UUID
	Amount            decimal.Decimal
	Date              time.Time
	Method            ledger.PaymentMethod
	ExternalReference string
	Notes             string
	Verified          *bool
	Actor             string
}

// UpdatePaymentRequest edits a payment; nil fields are left alone
type UpdatePaymentRequest struct {
	PaymentID uuid.UUID
	Amount    *decimal.Decimal
	Date      *time.Time
	Method    *ledger.PaymentMethod
	Notes     *string
	Actor     string
}

// VerifyPaymentRequest moves a payment past the point of no return
type VerifyPaymentRequest struct {
	PaymentID uuid.UUID
	Verifier  string
	Notes     string
}

// RejectPaymentRequest removes an unverified payment
type RejectPaymentRequest struct {
	PaymentID uuid.UUID
	Verifier  string
	Reason    string
}

// ApplyPenaltyRequest raises an installment and its plan total
type ApplyPenaltyRequest struct {
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
	Reason        string
	Actor         string
}

// GatewayCallback is what the ledger consumes from a payment gateway notification
type GatewayCallback struct {
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
	Date          time.Time
	Reference     string
	Method        ledger.PaymentMethod
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                uuid.UUID       `json:"id"`
	InstallmentID     uuid.UUID       `json:"installment_id"`
	Date              string          `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	ExternalReference string          `json:"external_reference,omitempty"`
	Verified          bool            `json:"verified"`
	VerifiedAt        *time.Time      `json:"verified_at,omitempty"`
	VerifiedBy        string          `json:"verified_by,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InstallmentResponse represents a projected installment in API responses
type InstallmentResponse struct {
	ID          uuid.UUID         `json:"id"`
	PlanID      uuid.UUID         `json:"plan_id"`
	Sequence    int               `json:"sequence"`
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	Amount      decimal.Decimal   `json:"amount"`
	AmountPaid  decimal.Decimal   `json:"amount_paid"`
	Outstanding decimal.Decimal   `json:"outstanding"`
	Status      string            `json:"status"`
	Payments    []PaymentResponse `json:"payments"`
}

// PlanResponse represents a projected plan in API responses
type PlanResponse struct {
	ID                       uuid.UUID             `json:"id"`
	EnrollmentID             uuid.UUID             `json:"enrollment_id"`
	HolderLabel              string                `json:"holder_label,omitempty"`
	DeclaredTotal            decimal.Decimal       `json:"declared_total"`
	DeclaredInstallmentCount int                   `json:"declared_installment_count"`
	AmountPaid               decimal.Decimal       `json:"amount_paid"`
	AmountPending            decimal.Decimal       `json:"amount_pending"`
	PercentPaid              decimal.Decimal       `json:"percent_paid"`
	IsComplete               bool                  `json:"is_complete"`
	Installments             []InstallmentResponse `json:"installments"`
	Version                  int                   `json:"version"`
	CreatedAt                time.Time             `json:"created_at"`
	UpdatedAt                time.Time             `json:"updated_at"`
}

// AuditEntryResponse represents an audit log line in API responses
type AuditEntryResponse struct {
	ID           int64     `json:"id"`
	OccurredAt   time.Time `json:"occurred_at"`
	SubjectTable string    `json:"subject_table"`
	SubjectID    uuid.UUID `json:"subject_id"`
	Actor        string    `json:"actor"`
	Message      string    `json:"message"`
}

// GatewayIntakeResult tells the gateway whether its callback created a payment
type GatewayIntakeResult struct {
	Payment   PaymentResponse `json:"payment"`
	Duplicate bool            `json:"duplicate"`
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *ledger.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		InstallmentID:     p.InstallmentID,
		Date:              p.Date.Format(time.DateOnly),
		Amount:            p.Amount,
		Method:            p.Method.String(),
		ExternalReference: p.ExternalReference,
		Verified:          p.Verified,
		VerifiedAt:        p.VerifiedAt,
		VerifiedBy:        p.VerifiedBy,
		Notes:             p.Notes,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []ledger.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}

// ToInstallmentResponse converts a projection to a response
func ToInstallmentResponse(ip ledger.InstallmentProjection) InstallmentResponse {
	inst := ip.Installment
	return InstallmentResponse{
		ID:          inst.ID,
		PlanID:      inst.PlanID,
		Sequence:    inst.Sequence,
		PeriodStart: inst.PeriodStart.Format(time.DateOnly),
		PeriodEnd:   inst.PeriodEnd.Format(time.DateOnly),
		Amount:      inst.Amount,
		AmountPaid:  ip.AmountPaid,
		Outstanding: ip.Outstanding,
		Status:      string(ip.Status),
		Payments:    ToPaymentResponses(ip.Payments),
	}
}

// ToPlanResponse converts a plan projection to a response
func ToPlanResponse(pp ledger.PlanProjection) PlanResponse {
	installments := make([]InstallmentResponse, len(pp.Installments))
	for i, ip := range pp.Installments {
		installments[i] = ToInstallmentResponse(ip)
	}
	return PlanResponse{
		ID:                       pp.Plan.ID,
		EnrollmentID:             pp.Plan.EnrollmentID,
		HolderLabel:              pp.Plan.HolderLabel,
		DeclaredTotal:            pp.Plan.DeclaredTotal,
		DeclaredInstallmentCount: pp.Plan.DeclaredInstallmentCount,
		AmountPaid:               pp.AmountPaid,
		AmountPending:            pp.AmountPending,
		PercentPaid:              pp.PercentPaid,
		IsComplete:               pp.IsComplete,
		Installments:             installments,
		Version:                  pp.Plan.Version,
		CreatedAt:                pp.Plan.CreatedAt,
		UpdatedAt:                pp.Plan.UpdatedAt,
	}
}

// ToAuditEntryResponses converts audit entries
func ToAuditEntryResponses(entries []ledger.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			ID:           e.ID,
			OccurredAt:   e.OccurredAt,
			SubjectTable: e.SubjectTable,
			SubjectID:    e.SubjectID,
			Actor:        e.Actor,
			Message:      e.Message,
		}
	}
	return out
}

func toSpecs(inputs []InstallmentInput) []ledger.InstallmentSpec {
	specs := make([]ledger.InstallmentSpec, len(inputs))
	for i, in := range inputs {
		specs[i] = ledger.InstallmentSpec{PeriodStart: in.PeriodStart, PeriodEnd: in.PeriodEnd, Amount: in.Amount}
	}
	return specs
}
