package admin

import (
	"strings"

	handlershared "github.com/sarvcast-next/internal/http/handlers/shared"
	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/repository"
	"github.com/sarvcast-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ProcessPaymentRequest 开始处理打款
type ProcessPaymentRequest struct {
	ProcessorID uint `json:"processor_id" binding:"required"`
}

// MarkPaidRequest 打款成功
type MarkPaidRequest struct {
	PaymentReference string `json:"payment_reference"`
}

// MarkFailedRequest 打款失败
type MarkFailedRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BulkProcessRequest 批量开始处理
type BulkProcessRequest struct {
	PaymentIDs  []uint `json:"payment_ids" binding:"required"`
	ProcessorID uint   `json:"processor_id" binding:"required"`
}

// ListPayments 佣金打款列表
func (h *Handler) ListPayments(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	partnerID, ok := handlershared.ParseUintQuery(c, "partner_id")
	if !ok {
		return
	}
	createdFrom, ok := handlershared.ParseTimeQuery(c, "created_from")
	if !ok {
		return
	}
	createdTo, ok := handlershared.ParseTimeQuery(c, "created_to")
	if !ok {
		return
	}
	rows, total, err := h.CommissionPaymentService.ListPayments(c.Request.Context(), repository.CommissionPaymentListFilter{
		Page:        page,
		PageSize:    pageSize,
		PartnerID:   partnerID,
		Status:      strings.TrimSpace(c.Query("status")),
		PaymentType: strings.TrimSpace(c.Query("payment_type")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetPayment 打款详情
func (h *Handler) GetPayment(c *gin.Context) {
	paymentID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.CommissionPaymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// CreateManualPayment 手工登记打款
func (h *Handler) CreateManualPayment(c *gin.Context) {
	var req service.CreateManualPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	payment, err := h.CommissionPaymentService.CreateManualPayment(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// ProcessPayment pending -> processing
func (h *Handler) ProcessPayment(c *gin.Context) {
	paymentID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	payment, err := h.CommissionPaymentService.ProcessPayment(c.Request.Context(), paymentID, req.ProcessorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// MarkPaymentPaid processing -> paid
func (h *Handler) MarkPaymentPaid(c *gin.Context) {
	paymentID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	payment, err := h.CommissionPaymentService.MarkAsPaid(c.Request.Context(), paymentID, req.PaymentReference)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// MarkPaymentFailed pending/processing -> failed
func (h *Handler) MarkPaymentFailed(c *gin.Context) {
	paymentID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req MarkFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	payment, err := h.CommissionPaymentService.MarkAsFailed(c.Request.Context(), paymentID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// BulkProcessPayments 批量开始处理，返回实际推进的条数
func (h *Handler) BulkProcessPayments(c *gin.Context) {
	var req BulkProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	processed, err := h.CommissionPaymentService.BulkProcessPayments(c.Request.Context(), req.PaymentIDs, req.ProcessorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"processed": processed})
}

// GetPaymentStatistics 打款统计
func (h *Handler) GetPaymentStatistics(c *gin.Context) {
	stats, err := h.CommissionPaymentService.GetPaymentStatistics(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}
