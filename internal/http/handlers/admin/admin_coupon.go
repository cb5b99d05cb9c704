package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/sarvcast-next/internal/http/handlers/shared"
	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/repository"
	"github.com/sarvcast-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ValidateCouponRequest 优惠码试算请求
type ValidateCouponRequest struct {
	Code   string       `json:"code" binding:"required"`
	UserID uint         `json:"user_id" binding:"required"`
	Amount models.Money `json:"amount"`
}

// CreateCoupon 创建优惠码，未填写 code 时按伙伴类型生成
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req service.CreateCouponCodeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	coupon, err := h.CouponService.CreateCode(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, coupon)
}

// ListCoupons 优惠码列表
func (h *Handler) ListCoupons(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	partnerID, ok := handlershared.ParseUintQuery(c, "partner_id")
	if !ok {
		return
	}
	filter := repository.CouponListFilter{
		Code:        strings.TrimSpace(c.Query("code")),
		PartnerID:   partnerID,
		PartnerType: strings.TrimSpace(c.Query("partner_type")),
		Page:        page,
		PageSize:    pageSize,
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid is_active", nil)
			return
		}
		filter.IsActive = &active
	}
	rows, total, err := h.CouponService.ListCodes(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ListCouponUsages 单个优惠码的使用记录
func (h *Handler) ListCouponUsages(c *gin.Context) {
	couponID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := handlershared.ParseUintQuery(c, "user_id")
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	rows, total, err := h.CouponService.ListUsages(c.Request.Context(), repository.CouponUsageListFilter{
		CouponCodeID: couponID,
		UserID:       userID,
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// ValidateCoupon 试算优惠金额，不占用使用次数
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	quote, err := h.CouponService.Validate(c.Request.Context(), req.Code, req.UserID, req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, quote)
}

// RedeemCoupon 核销优惠码
func (h *Handler) RedeemCoupon(c *gin.Context) {
	var req service.RedeemCouponInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	redemption, err := h.CouponService.Redeem(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, redemption)
}

// DeactivateCoupon 停用优惠码
func (h *Handler) DeactivateCoupon(c *gin.Context) {
	couponID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	coupon, err := h.CouponService.Deactivate(c.Request.Context(), couponID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, coupon)
}
