package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CreatePartnerInput 创建合作伙伴参数
type CreatePartnerInput struct {
	Name           string                 `json:"name" validate:"required,max=120"`
	Email          string                 `json:"email" validate:"omitempty,email,max=255"`
	Phone          string                 `json:"phone" validate:"omitempty,max=32"`
	Type           string                 `json:"type" validate:"required,oneof=teacher influencer school corporate"`
	Tier           string                 `json:"tier" validate:"omitempty,oneof=micro mid macro enterprise"`
	FollowerCount  int                    `json:"follower_count" validate:"gte=0"`
	CommissionRate *decimal.Decimal       `json:"commission_rate"`
	BankDetails    map[string]interface{} `json:"bank_details"`
}

// AffiliatePartnerService 推广合作伙伴服务
type AffiliatePartnerService struct {
	repo     repository.AffiliateRepository
	rules    AffiliateRules
	validate *validator.Validate
	clock    Clock
}

// NewAffiliatePartnerService 创建合作伙伴服务
func NewAffiliatePartnerService(repo repository.AffiliateRepository, rules AffiliateRules, clock Clock) *AffiliatePartnerService {
	return &AffiliatePartnerService{
		repo:     repo,
		rules:    rules.normalized(),
		validate: newInputValidator(),
		clock:    clock,
	}
}

// Create 创建合作伙伴，初始状态为 pending
func (s *AffiliatePartnerService) Create(ctx context.Context, input CreatePartnerInput) (*models.AffiliatePartner, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Type = strings.ToLower(strings.TrimSpace(input.Type))
	input.Tier = strings.ToLower(strings.TrimSpace(input.Tier))
	if err := s.validate.Struct(input); err != nil {
		return nil, wrapValidation(err)
	}

	tier := input.Tier
	if tier == "" {
		tier = s.rules.DeriveTier(input.Type, input.FollowerCount)
	}
	rate := s.rules.RateForTier(tier)
	if input.CommissionRate != nil {
		if input.CommissionRate.IsNegative() || input.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, ErrInvalidInput
		}
		rate = *input.CommissionRate
	}
	bank, err := encodeBankDetails(input.BankDetails)
	if err != nil {
		return nil, ErrInvalidInput
	}

	now := s.clock.now()
	partner := &models.AffiliatePartner{
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		Type:           input.Type,
		Tier:           tier,
		Status:         constants.PartnerStatusPending,
		CommissionRate: rate.Round(2),
		FollowerCount:  input.FollowerCount,
		BankDetails:    bank,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreatePartner(partner); err != nil {
		logger.FromContext(ctx).Errorw("affiliate_partner_create_failed", "name", partner.Name, "type", partner.Type, "error", err)
		return nil, internalError(err)
	}
	logger.FromContext(ctx).Infow("affiliate_partner_created", "partner_id", partner.ID, "type", partner.Type, "tier", partner.Tier)
	return partner, nil
}

// Get 获取合作伙伴
func (s *AffiliatePartnerService) Get(ctx context.Context, id uint) (*models.AffiliatePartner, error) {
	partner, err := s.repo.GetPartnerByID(id)
	if err != nil {
		logger.FromContext(ctx).Errorw("affiliate_partner_fetch_failed", "partner_id", id, "error", err)
		return nil, internalError(err)
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	return partner, nil
}

// List 合作伙伴列表
func (s *AffiliatePartnerService) List(ctx context.Context, filter repository.AffiliatePartnerListFilter) ([]models.AffiliatePartner, int64, error) {
	rows, total, err := s.repo.ListPartners(filter)
	if err != nil {
		logger.FromContext(ctx).Errorw("affiliate_partner_list_failed", "error", err)
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// Verify 审核通过；已激活时不做修改，暂停状态经重新审核恢复为 active
func (s *AffiliatePartnerService) Verify(ctx context.Context, id uint) (*models.AffiliatePartner, error) {
	partner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if partner.Status == constants.PartnerStatusActive {
		return partner, nil
	}
	now := s.clock.now()
	affected, err := s.repo.UpdatePartnerFields(id,
		[]string{constants.PartnerStatusPending, constants.PartnerStatusSuspended},
		map[string]interface{}{
			"status":            constants.PartnerStatusActive,
			"verified_at":       now,
			"suspended_at":      nil,
			"suspension_reason": "",
			"updated_at":        now,
		})
	if err != nil {
		logger.FromContext(ctx).Errorw("affiliate_partner_verify_failed", "partner_id", id, "error", err)
		return nil, internalError(err)
	}
	if affected == 0 {
		return nil, ErrPartnerStatusInvalid
	}
	logger.FromContext(ctx).Infow("affiliate_partner_verified", "partner_id", id, "from_status", partner.Status)
	return s.Get(ctx, id)
}

// Suspend 暂停合作伙伴并记录原因
func (s *AffiliatePartnerService) Suspend(ctx context.Context, id uint, reason string) (*models.AffiliatePartner, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	now := s.clock.now()
	affected, err := s.repo.UpdatePartnerFields(id,
		[]string{constants.PartnerStatusPending, constants.PartnerStatusActive},
		map[string]interface{}{
			"status":            constants.PartnerStatusSuspended,
			"suspended_at":      now,
			"suspension_reason": reason,
			"updated_at":        now,
		})
	if err != nil {
		logger.FromContext(ctx).Errorw("affiliate_partner_suspend_failed", "partner_id", id, "error", err)
		return nil, internalError(err)
	}
	if affected == 0 {
		return nil, ErrPartnerStatusInvalid
	}
	logger.FromContext(ctx).Infow("affiliate_partner_suspended", "partner_id", id, "reason", reason)
	return s.Get(ctx, id)
}

// UpdateBankDetails 更新收款信息，不影响已生成的打款快照
func (s *AffiliatePartnerService) UpdateBankDetails(ctx context.Context, id uint, details map[string]interface{}) (*models.AffiliatePartner, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	bank, err := encodeBankDetails(details)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if _, err := s.repo.UpdatePartnerFields(id, nil, map[string]interface{}{
		"bank_details": bank,
		"updated_at":   s.clock.now(),
	}); err != nil {
		logger.FromContext(ctx).Errorw("affiliate_partner_bank_update_failed", "partner_id", id, "error", err)
		return nil, internalError(err)
	}
	return s.Get(ctx, id)
}

func encodeBankDetails(details map[string]interface{}) (datatypes.JSON, error) {
	if len(details) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
