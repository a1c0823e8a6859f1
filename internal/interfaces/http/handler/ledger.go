package handler

import (
	"context"
	"errors"
	"io"
	"time"

	appledger "github.com/cuotas/backend/internal/application/ledger"
	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/cuotas/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService is the part of the ledger application driven over HTTP
type LedgerService interface {
	CreatePlan(ctx context.Context, req appledger.CreatePlanRequest) (*appledger.PlanResponse, error)
	ReplacePlan(ctx context.Context, req appledger.ReplacePlanRequest) (*appledger.PlanResponse, error)
	DeletePlan(ctx context.Context, planID uuid.UUID, actor string) error
	GetPlan(ctx context.Context, planID uuid.UUID) (*appledger.PlanResponse, error)
	GetPlanByEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*appledger.PlanResponse, error)

	GetInstallment(ctx context.Context, installmentID uuid.UUID) (*appledger.InstallmentResponse, error)
	ListOverdueInstallments(ctx context.Context, asOf time.Time, page shared.Page) ([]appledger.InstallmentResponse, int64, error)
	ApplyPenalty(ctx context.Context, req appledger.ApplyPenaltyRequest) (*appledger.InstallmentResponse, error)

	RecordPayment(ctx context.Context, req appledger.RecordPaymentRequest) (*appledger.PaymentResponse, error)
	UpdatePayment(ctx context.Context, req appledger.UpdatePaymentRequest) (*appledger.PaymentResponse, error)
	DeletePayment(ctx context.Context, paymentID uuid.UUID, actor string) error
	VerifyPayment(ctx context.Context, req appledger.VerifyPaymentRequest) (*appledger.PaymentResponse, error)
	RejectPayment(ctx context.Context, req appledger.RejectPaymentRequest) error
	ListUnverifiedPayments(ctx context.Context, page shared.Page) ([]appledger.PaymentResponse, int64, error)

	ListAuditEntries(ctx context.Context, table string, subjectID uuid.UUID) ([]appledger.AuditEntryResponse, error)
}

// GatewayIntake consumes payment gateway callbacks
type GatewayIntake interface {
	Ingest(ctx context.Context, cb appledger.GatewayCallback) (*appledger.GatewayIntakeResult, error)
}

var (
	_ LedgerService = (*appledger.LedgerService)(nil)
	_ GatewayIntake = (*appledger.GatewayIntakeService)(nil)
)

// LedgerHandler handles the installment ledger API
type LedgerHandler struct {
	BaseHandler
	ledger  LedgerService
	gateway GatewayIntake
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger LedgerService, gateway GatewayIntake) *LedgerHandler {
	return &LedgerHandler{
		ledger:  ledger,
		gateway: gateway,
	}
}

// RegisterRoutes mounts the ledger endpoints on rg
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	plans := rg.Group("/plans")
	plans.POST("", h.CreatePlan)
	plans.GET("/:id", h.GetPlan)
	plans.PUT("/:id", h.ReplacePlan)
	plans.DELETE("/:id", h.DeletePlan)

	rg.GET("/enrollments/:id/plan", h.GetPlanByEnrollment)

	installments := rg.Group("/installments")
	installments.GET("/overdue", h.ListOverdueInstallments)
	installments.GET("/:id", h.GetInstallment)
	installments.POST("/:id/payments", h.RecordPayment)
	installments.POST("/:id/penalties", h.ApplyPenalty)

	payments := rg.Group("/payments")
	payments.GET("/unverified", h.ListUnverifiedPayments)
	payments.PATCH("/:id", h.UpdatePayment)
	payments.DELETE("/:id", h.DeletePayment)
	payments.POST("/:id/verify", h.VerifyPayment)
	payments.POST("/:id/reject", h.RejectPayment)

	rg.POST("/gateway/callbacks", h.GatewayCallback)
	rg.GET("/audit/:table/:id", h.ListAuditEntries)
}

// CreatePlan handles POST /plans
func (h *LedgerHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	appReq, err := req.toApp(getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	plan, err := h.ledger.CreatePlan(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, plan)
}

// GetPlan handles GET /plans/:id
func (h *LedgerHandler) GetPlan(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	plan, err := h.ledger.GetPlan(c.Request.Context(), planID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// ReplacePlan handles PUT /plans/:id
func (h *LedgerHandler) ReplacePlan(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req ReplacePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	appReq, err := req.toApp(planID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	plan, err := h.ledger.ReplacePlan(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// DeletePlan handles DELETE /plans/:id
func (h *LedgerHandler) DeletePlan(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.DeletePlan(c.Request.Context(), planID, getActor(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetPlanByEnrollment handles GET /enrollments/:id/plan
func (h *LedgerHandler) GetPlanByEnrollment(c *gin.Context) {
	enrollmentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	plan, err := h.ledger.GetPlanByEnrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// GetInstallment handles GET /installments/:id
func (h *LedgerHandler) GetInstallment(c *gin.Context) {
	installmentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inst, err := h.ledger.GetInstallment(c.Request.Context(), installmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// ListOverdueInstallments handles GET /installments/overdue?as_of=YYYY-MM-DD
func (h *LedgerHandler) ListOverdueInstallments(c *gin.Context) {
	var q OverdueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}

	var asOf time.Time
	if q.AsOf != "" {
		var err error
		if asOf, err = parseDate("as_of", q.AsOf); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	page := q.ToPage()
	items, total, err := h.ledger.ListOverdueInstallments(c.Request.Context(), asOf, page)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, page, len(items))
}

// RecordPayment handles POST /installments/:id/payments
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	installmentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	appReq, err := req.toApp(installmentID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payment, err := h.ledger.RecordPayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// ApplyPenalty handles POST /installments/:id/penalties
func (h *LedgerHandler) ApplyPenalty(c *gin.Context) {
	installmentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req ApplyPenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	appReq, err := req.toApp(installmentID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	inst, err := h.ledger.ApplyPenalty(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// ListUnverifiedPayments handles GET /payments/unverified
func (h *LedgerHandler) ListUnverifiedPayments(c *gin.Context) {
	var q dto.ListRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindingError(c, err)
		return
	}

	page := q.ToPage()
	payments, total, err := h.ledger.ListUnverifiedPayments(c.Request.Context(), page)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, payments, total, page, len(payments))
}

// UpdatePayment handles PATCH /payments/:id
func (h *LedgerHandler) UpdatePayment(c *gin.Context) {
	paymentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	appReq, err := req.toApp(paymentID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payment, err := h.ledger.UpdatePayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// DeletePayment handles DELETE /payments/:id
func (h *LedgerHandler) DeletePayment(c *gin.Context) {
	paymentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.DeletePayment(c.Request.Context(), paymentID, getActor(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// VerifyPayment handles POST /payments/:id/verify. The actor is the verifier;
// the body is optional.
func (h *LedgerHandler) VerifyPayment(c *gin.Context) {
	paymentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindingError(c, err)
		return
	}

	payment, err := h.ledger.VerifyPayment(c.Request.Context(), appledger.VerifyPaymentRequest{
		PaymentID: paymentID,
		Verifier:  getActor(c),
		Notes:     req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// RejectPayment handles POST /payments/:id/reject
func (h *LedgerHandler) RejectPayment(c *gin.Context) {
	paymentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req RejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	err := h.ledger.RejectPayment(c.Request.Context(), appledger.RejectPaymentRequest{
		PaymentID: paymentID,
		Verifier:  getActor(c),
		Reason:    req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GatewayCallback handles POST /gateway/callbacks. A first delivery answers 201,
// a redelivery of a known reference answers 200 with the existing payment.
func (h *LedgerHandler) GatewayCallback(c *gin.Context) {
	var req GatewayCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	cb, err := req.toApp()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.gateway.Ingest(c.Request.Context(), cb)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Duplicate {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// ListAuditEntries handles GET /audit/:table/:id
func (h *LedgerHandler) ListAuditEntries(c *gin.Context) {
	subjectID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.ledger.ListAuditEntries(c.Request.Context(), c.Param("table"), subjectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}
