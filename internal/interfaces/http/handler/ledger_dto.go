package handler

import (
	"fmt"
	"strings"
	"time"

	appledger "github.com/cuotas/backend/internal/application/ledger"
	"github.com/cuotas/backend/internal/domain/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Amounts travel as decimal strings and dates as YYYY-MM-DD so that no value
// passes through a float on its way into the ledger.

// InstallmentRequest is one due of a schedule
type InstallmentRequest struct {
	PeriodStart string `json:"period_start" binding:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" binding:"required,datetime=2006-01-02"`
	Amount      string `json:"amount" binding:"required,decimal"`
}

// CreatePlanRequest is the body of POST /plans
type CreatePlanRequest struct {
	EnrollmentID             string               `json:"enrollment_id" binding:"required,uuid"`
	DeclaredTotal            string               `json:"declared_total" binding:"required,decimal"`
	DeclaredInstallmentCount *int                 `json:"declared_installment_count"`
	Installments             []InstallmentRequest `json:"installments" binding:"dive"`
}

// ReplacePlanRequest is the body of PUT /plans/:id
type ReplacePlanRequest struct {
	DeclaredTotal            string               `json:"declared_total" binding:"required,decimal"`
	DeclaredInstallmentCount *int                 `json:"declared_installment_count"`
	Installments             []InstallmentRequest `json:"installments" binding:"dive"`
}

// RecordPaymentRequest is the body of POST /installments/:id/payments
type RecordPaymentRequest struct {
	Amount            string `json:"amount" binding:"required,decimal"`
	Date              string `json:"date" binding:"required,datetime=2006-01-02"`
	Method            string `json:"method" binding:"required,payment_method"`
	ExternalReference string `json:"external_reference" binding:"max=100"`
	Notes             string `json:"notes" binding:"max=2000"`
	Verified          *bool  `json:"verified"`
}

// UpdatePaymentRequest is the body of PATCH /payments/:id; absent fields are left alone
type UpdatePaymentRequest struct {
	Amount *string `json:"amount" binding:"omitempty,decimal"`
	Date   *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Method *string `json:"method" binding:"omitempty,payment_method"`
	Notes  *string `json:"notes" binding:"omitempty,max=2000"`
}

// VerifyPaymentRequest is the optional body of POST /payments/:id/verify
type VerifyPaymentRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// RejectPaymentRequest is the body of POST /payments/:id/reject
type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ApplyPenaltyRequest is the body of POST /installments/:id/penalties
type ApplyPenaltyRequest struct {
	Amount string `json:"amount" binding:"required,decimal"`
	Reason string `json:"reason" binding:"required"`
}

// GatewayCallbackRequest is what a payment gateway posts to /gateway/callbacks.
// Method defaults to QR.
type GatewayCallbackRequest struct {
	InstallmentID string `json:"installment_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required,decimal"`
	Date          string `json:"date" binding:"required,datetime=2006-01-02"`
	Reference     string `json:"reference" binding:"required,max=100"`
	Method        string `json:"method" binding:"omitempty,payment_method"`
}

// OverdueQuery holds the query parameters of GET /installments/overdue
type OverdueQuery struct {
	dto.ListRequest
	AsOf string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, shared.NewInvalidInputError(field + " must be a date formatted as YYYY-MM-DD")
	}
	return t, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, shared.NewInvalidInputError(field + " must be a decimal number")
	}
	if !d.Equal(d.Truncate(ledger.MoneyScale)) {
		return decimal.Zero, shared.NewInvalidInputError(fmt.Sprintf("%s allows at most %d decimal places", field, ledger.MoneyScale))
	}
	return d, nil
}

func toInstallmentInputs(reqs []InstallmentRequest) ([]appledger.InstallmentInput, error) {
	inputs := make([]appledger.InstallmentInput, len(reqs))
	for i, r := range reqs {
		start, err := parseDate("period_start", r.PeriodStart)
		if err != nil {
			return nil, err
		}
		end, err := parseDate("period_end", r.PeriodEnd)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", r.Amount)
		if err != nil {
			return nil, err
		}
		inputs[i] = appledger.InstallmentInput{PeriodStart: start, PeriodEnd: end, Amount: amount}
	}
	return inputs, nil
}

func (r CreatePlanRequest) toApp(actor string) (appledger.CreatePlanRequest, error) {
	enrollmentID, err := uuid.Parse(r.EnrollmentID)
	if err != nil {
		return appledger.CreatePlanRequest{}, shared.NewInvalidInputError("enrollment_id must be a UUID")
	}
	total, err := parseAmount("declared_total", r.DeclaredTotal)
	if err != nil {
		return appledger.CreatePlanRequest{}, err
	}
	installments, err := toInstallmentInputs(r.Installments)
	if err != nil {
		return appledger.CreatePlanRequest{}, err
	}
	return appledger.CreatePlanRequest{
		EnrollmentID:             enrollmentID,
		DeclaredTotal:            total,
		DeclaredInstallmentCount: r.DeclaredInstallmentCount,
		Installments:             installments,
		Actor:                    actor,
	}, nil
}

func (r ReplacePlanRequest) toApp(planID uuid.UUID, actor string) (appledger.ReplacePlanRequest, error) {
	total, err := parseAmount("declared_total", r.DeclaredTotal)
	if err != nil {
		return appledger.ReplacePlanRequest{}, err
	}
	installments, err := toInstallmentInputs(r.Installments)
	if err != nil {
		return appledger.ReplacePlanRequest{}, err
	}
	return appledger.ReplacePlanRequest{
		PlanID:                   planID,
		DeclaredTotal:            total,
		DeclaredInstallmentCount: r.DeclaredInstallmentCount,
		Installments:             installments,
		Actor:                    actor,
	}, nil
}

func (r RecordPaymentRequest) toApp(installmentID uuid.UUID, actor string) (appledger.RecordPaymentRequest, error) {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return appledger.RecordPaymentRequest{}, err
	}
	date, err := parseDate("date", r.Date)
	if err != nil {
		return appledger.RecordPaymentRequest{}, err
	}
	method, err := ledger.ParsePaymentMethod(r.Method)
	if err != nil {
		return appledger.RecordPaymentRequest{}, err
	}
	return appledger.RecordPaymentRequest{
		InstallmentID:     installmentID,
		Amount:            amount,
		Date:              date,
		Method:            method,
		ExternalReference: r.ExternalReference,
		Notes:             r.Notes,
		Verified:          r.Verified,
		Actor:             actor,
	}, nil
}

func (r UpdatePaymentRequest) toApp(paymentID uuid.UUID, actor string) (appledger.UpdatePaymentRequest, error) {
	out := appledger.UpdatePaymentRequest{PaymentID: paymentID, Notes: r.Notes, Actor: actor}
	if r.Amount != nil {
		amount, err := parseAmount("amount", *r.Amount)
		if err != nil {
			return out, err
		}
		out.Amount = &amount
	}
	if r.Date != nil {
		date, err := parseDate("date", *r.Date)
		if err != nil {
			return out, err
		}
		out.Date = &date
	}
	if r.Method != nil {
		method, err := ledger.ParsePaymentMethod(*r.Method)
		if err != nil {
			return out, err
		}
		out.Method = &method
	}
	return out, nil
}

func (r ApplyPenaltyRequest) toApp(installmentID uuid.UUID, actor string) (appledger.ApplyPenaltyRequest, error) {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return appledger.ApplyPenaltyRequest{}, err
	}
	return appledger.ApplyPenaltyRequest{
		InstallmentID: installmentID,
		Amount:        amount,
		Reason:        r.Reason,
		Actor:         actor,
	}, nil
}

func (r GatewayCallbackRequest) toApp() (appledger.GatewayCallback, error) {
	installmentID, err := uuid.Parse(r.InstallmentID)
	if err != nil {
		return appledger.GatewayCallback{}, shared.NewInvalidInputError("installment_id must be a UUID")
	}
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return appledger.GatewayCallback{}, err
	}
	date, err := parseDate("date", r.Date)
	if err != nil {
		return appledger.GatewayCallback{}, err
	}
	method := ledger.PaymentMethodQR
	if r.Method != "" {
		if method, err = ledger.ParsePaymentMethod(r.Method); err != nil {
			return appledger.GatewayCallback{}, err
		}
	}
	return appledger.GatewayCallback{
		InstallmentID: installmentID,
		Amount:        amount,
		Date:          date,
		Reference:     r.Reference,
		Method:        method,
	}, nil
}
