package admin

import (
	"strings"

	handlershared "github.com/sarvcast-next/internal/http/handlers/shared"
	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// CreateCommissionRequest 订阅佣金登记请求
type CreateCommissionRequest struct {
	PartnerID      uint `json:"partner_id" binding:"required"`
	SubscriptionID uint `json:"subscription_id" binding:"required"`
}

// CreateCommission 为订阅登记佣金
func (h *Handler) CreateCommission(c *gin.Context) {
	var req CreateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	commission, err := h.CommissionService.CreateForSubscription(c.Request.Context(), req.PartnerID, req.SubscriptionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, commission)
}

// ListCommissions 订阅佣金列表
func (h *Handler) ListCommissions(c *gin.Context) {
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
	rows, total, err := h.CommissionService.ListCommissions(c.Request.Context(), repository.CommissionListFilter{
		Page:        page,
		PageSize:    pageSize,
		PartnerID:   partnerID,
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
