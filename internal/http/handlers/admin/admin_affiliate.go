package admin

import (
	"strings"

	handlershared "github.com/sarvcast-next/internal/http/handlers/shared"
	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/repository"
	"github.com/sarvcast-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SuspendPartnerRequest 暂停合作伙伴请求
type SuspendPartnerRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BankDetailsRequest 收款信息更新请求
type BankDetailsRequest struct {
	BankDetails map[string]interface{} `json:"bank_details" binding:"required"`
}

// CreatePartner 登记合作伙伴
func (h *Handler) CreatePartner(c *gin.Context) {
	var req service.CreatePartnerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	partner, err := h.AffiliatePartnerService.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, partner)
}

// ListPartners 合作伙伴列表
func (h *Handler) ListPartners(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	rows, total, err := h.AffiliatePartnerService.List(c.Request.Context(), repository.AffiliatePartnerListFilter{
		Page:     page,
		PageSize: pageSize,
		Type:     strings.TrimSpace(c.Query("type")),
		Tier:     strings.TrimSpace(c.Query("tier")),
		Status:   strings.TrimSpace(c.Query("status")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetPartner 合作伙伴详情
func (h *Handler) GetPartner(c *gin.Context) {
	partnerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	partner, err := h.AffiliatePartnerService.Get(c.Request.Context(), partnerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, partner)
}

// VerifyPartner 审核通过（或从暂停恢复）
func (h *Handler) VerifyPartner(c *gin.Context) {
	partnerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	partner, err := h.AffiliatePartnerService.Verify(c.Request.Context(), partnerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, partner)
}

// SuspendPartner 暂停合作伙伴
func (h *Handler) SuspendPartner(c *gin.Context) {
	partnerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req SuspendPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	partner, err := h.AffiliatePartnerService.Suspend(c.Request.Context(), partnerID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, partner)
}

// UpdatePartnerBankDetails 更新收款信息，不影响已生成的打款快照
func (h *Handler) UpdatePartnerBankDetails(c *gin.Context) {
	partnerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req BankDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	partner, err := h.AffiliatePartnerService.UpdateBankDetails(c.Request.Context(), partnerID, req.BankDetails)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, partner)
}

// GetPartnerCommissionStatistics 合作伙伴佣金汇总
func (h *Handler) GetPartnerCommissionStatistics(c *gin.Context) {
	partnerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.CommissionService.GetPartnerStatistics(c.Request.Context(), partnerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}
