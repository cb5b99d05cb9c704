package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	couponCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	couponCodeMaxRetry = 10
)

var hundred = decimal.NewFromInt(100)

// CreateCouponCodeInput 创建优惠码参数
type CreateCouponCodeInput struct {
	Code            string          `json:"code" validate:"omitempty,alphanum,min=4,max=32"`
	PartnerID       *uint           `json:"partner_id"`
	PartnerType     string          `json:"partner_type" validate:"omitempty,max=20"`
	DiscountType    string          `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue   decimal.Decimal `json:"discount_value"`
	MaxDiscount     models.Money    `json:"max_discount"`
	MinimumAmount   models.Money    `json:"minimum_amount"`
	CommissionType  string          `json:"commission_type" validate:"omitempty,oneof=none percentage fixed"`
	CommissionValue decimal.Decimal `json:"commission_value"`
	UsageLimit      int             `json:"usage_limit" validate:"gte=0"`
	IsActive        *bool           `json:"is_active"`
	StartsAt        *time.Time      `json:"starts_at"`
	EndsAt          *time.Time      `json:"ends_at"`
	Description     string          `json:"description" validate:"max=255"`
}

// RedeemCouponInput 核销优惠码参数
type RedeemCouponInput struct {
	Code           string       `json:"code"`
	UserID         uint         `json:"user_id"`
	SubscriptionID *uint        `json:"subscription_id"`
	Amount         models.Money `json:"amount"`
}

// CouponQuote 优惠码试算结果
type CouponQuote struct {
	Coupon           *models.CouponCode `json:"coupon"`
	OriginalAmount   models.Money       `json:"original_amount"`
	DiscountAmount   models.Money       `json:"discount_amount"`
	FinalAmount      models.Money       `json:"final_amount"`
	CommissionAmount models.Money       `json:"commission_amount"`
	partner          *models.AffiliatePartner
}

// CouponRedemption 核销结果，Payment 仅在产生佣金时存在
type CouponRedemption struct {
	Usage   *models.CouponUsage       `json:"usage"`
	Payment *models.CommissionPayment `json:"payment,omitempty"`
}

// CouponService 优惠码服务
type CouponService struct {
	couponRepo       repository.CouponRepository
	usageRepo        repository.CouponUsageRepository
	affiliateRepo    repository.AffiliateRepository
	commissionRepo   repository.CommissionRepository
	subscriptionRepo repository.SubscriptionRepository
	rules            AffiliateRules
	validate         *validator.Validate
	clock            Clock
}

// NewCouponService 创建优惠码服务
func NewCouponService(
	couponRepo repository.CouponRepository,
	usageRepo repository.CouponUsageRepository,
	affiliateRepo repository.AffiliateRepository,
	commissionRepo repository.CommissionRepository,
	subscriptionRepo repository.SubscriptionRepository,
	rules AffiliateRules,
	clock Clock,
) *CouponService {
	return &CouponService{
		couponRepo:       couponRepo,
		usageRepo:        usageRepo,
		affiliateRepo:    affiliateRepo,
		commissionRepo:   commissionRepo,
		subscriptionRepo: subscriptionRepo,
		rules:            rules.normalized(),
		validate:         newInputValidator(),
		clock:            clock,
	}
}

// CreateCode 创建优惠码；未提供 code 时按伙伴类型前缀生成
func (s *CouponService) CreateCode(ctx context.Context, input CreateCouponCodeInput) (*models.CouponCode, error) {
	log := logger.FromContext(ctx)
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.PartnerType = strings.ToLower(strings.TrimSpace(input.PartnerType))
	input.DiscountType = strings.ToLower(strings.TrimSpace(input.DiscountType))
	input.CommissionType = strings.ToLower(strings.TrimSpace(input.CommissionType))
	if err := s.validate.Struct(input); err != nil {
		return nil, wrapValidation(err)
	}
	if err := validateCouponRules(input); err != nil {
		return nil, err
	}

	commissionType := input.CommissionType
	if commissionType == "" {
		commissionType = constants.CommissionRuleNone
	}
	partnerType := input.PartnerType
	if input.PartnerID != nil {
		partner, err := s.affiliateRepo.GetPartnerByID(*input.PartnerID)
		if err != nil {
			log.Errorw("coupon_partner_fetch_failed", "partner_id", *input.PartnerID, "error", err)
			return nil, internalError(err)
		}
		if partner == nil {
			return nil, ErrPartnerNotFound
		}
		partnerType = partner.Type
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	now := s.clock.now()
	coupon := &models.CouponCode{
		Code:            input.Code,
		PartnerID:       input.PartnerID,
		PartnerType:     partnerType,
		DiscountType:    input.DiscountType,
		DiscountValue:   input.DiscountValue,
		MaxDiscount:     models.NewMoneyFromDecimal(input.MaxDiscount.Decimal),
		MinimumAmount:   models.NewMoneyFromDecimal(input.MinimumAmount.Decimal),
		CommissionType:  commissionType,
		CommissionValue: input.CommissionValue,
		UsageLimit:      input.UsageLimit,
		IsActive:        isActive,
		StartsAt:        input.StartsAt,
		EndsAt:          input.EndsAt,
		Description:     strings.TrimSpace(input.Description),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if coupon.Code != "" {
		existing, err := s.couponRepo.GetByCode(coupon.Code)
		if err != nil {
			log.Errorw("coupon_lookup_failed", "code", coupon.Code, "error", err)
			return nil, internalError(err)
		}
		if existing != nil {
			return nil, ErrCouponCodeExists
		}
		if err := s.couponRepo.Create(coupon); err != nil {
			if isUniqueViolation(err) {
				return nil, ErrCouponCodeExists
			}
			log.Errorw("coupon_create_failed", "code", coupon.Code, "error", err)
			return nil, internalError(err)
		}
		log.Infow("coupon_created", "coupon_id", coupon.ID, "code", coupon.Code)
		return coupon, nil
	}

	prefix := s.rules.CodePrefix(partnerType)
	for i := 0; i < couponCodeMaxRetry; i++ {
		code, err := generateCouponCode(prefix, s.rules.CodeLength)
		if err != nil {
			return nil, internalError(err)
		}
		existing, err := s.couponRepo.GetByCode(code)
		if err != nil {
			log.Errorw("coupon_lookup_failed", "code", code, "error", err)
			return nil, internalError(err)
		}
		if existing != nil {
			continue
		}
		coupon.Code = code
		if err := s.couponRepo.Create(coupon); err != nil {
			if isUniqueViolation(err) {
				coupon.ID = 0
				continue
			}
			log.Errorw("coupon_create_failed", "code", code, "error", err)
			return nil, internalError(err)
		}
		log.Infow("coupon_created", "coupon_id", coupon.ID, "code", coupon.Code, "generated", true)
		return coupon, nil
	}
	log.Errorw("coupon_code_generate_exhausted", "prefix", prefix, "attempts", couponCodeMaxRetry)
	return nil, ErrCouponCodeGenerate
}

// Validate 只读试算：依次检查存在、启用与有效期、是否已使用、门槛，首个失败即返回
func (s *CouponService) Validate(ctx context.Context, code string, userID uint, amount models.Money) (*CouponQuote, error) {
	quote, err := s.evaluate(s.couponRepo, s.usageRepo, s.affiliateRepo, code, userID, amount, false)
	if err != nil && errors.Is(err, ErrInternal) {
		logger.FromContext(ctx).Errorw("coupon_validate_failed", "code", code, "user_id", userID, "error", err)
	}
	return quote, err
}

// Redeem 在单个事务内重新校验并写入使用记录、计数与佣金打款
func (s *CouponService) Redeem(ctx context.Context, input RedeemCouponInput) (*CouponRedemption, error) {
	log := logger.FromContext(ctx)
	amount := input.Amount
	if input.SubscriptionID != nil {
		subscription, err := s.subscriptionRepo.GetByID(*input.SubscriptionID)
		if err != nil {
			log.Errorw("coupon_subscription_fetch_failed", "subscription_id", *input.SubscriptionID, "error", err)
			return nil, internalError(err)
		}
		if subscription == nil {
			return nil, ErrSubscriptionMissing
		}
		if amount.Decimal.IsZero() {
			amount = subscription.Amount
		}
	}

	var redemption *CouponRedemption
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		couponTx := s.couponRepo.WithTx(tx)
		usageTx := s.usageRepo.WithTx(tx)
		commissionTx := s.commissionRepo.WithTx(tx)

		quote, err := s.evaluate(couponTx, usageTx, s.affiliateRepo.WithTx(tx), input.Code, input.UserID, amount, true)
		if err != nil {
			return err
		}
		now := s.clock.now()
		usage := &models.CouponUsage{
			CouponCodeID:     quote.Coupon.ID,
			UserID:           input.UserID,
			SubscriptionID:   input.SubscriptionID,
			OriginalAmount:   quote.OriginalAmount,
			DiscountAmount:   quote.DiscountAmount,
			FinalAmount:      quote.FinalAmount,
			CommissionAmount: quote.CommissionAmount,
			Status:           constants.CouponUsageStatusCompleted,
			UsedAt:           now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := usageTx.Create(usage); err != nil {
			if isUniqueViolation(err) {
				return ErrCouponAlreadyUsed
			}
			return err
		}
		if err := couponTx.IncrementUsageCount(quote.Coupon.ID, 1); err != nil {
			return err
		}
		redemption = &CouponRedemption{Usage: usage}

		if quote.partner == nil || !quote.CommissionAmount.Decimal.IsPositive() {
			return nil
		}
		usageID := usage.ID
		payment := &models.CommissionPayment{
			PartnerID:      quote.partner.ID,
			CouponUsageID:  &usageID,
			Amount:         quote.CommissionAmount,
			Currency:       s.rules.Currency,
			PaymentType:    constants.CommissionPaymentTypeCoupon,
			Status:         constants.CommissionPaymentStatusPending,
			PaymentDetails: snapshotBankDetails(quote.partner),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := commissionTx.CreatePayment(payment); err != nil {
			return err
		}
		redemption.Payment = payment
		return nil
	})
	if err != nil {
		if !isKindError(err) {
			err = internalError(err)
		}
		if errors.Is(err, ErrInternal) {
			log.Errorw("coupon_redeem_failed", "code", input.Code, "user_id", input.UserID, "error", err)
		}
		return nil, err
	}
	log.Infow("coupon_redeemed",
		"code", strings.ToUpper(strings.TrimSpace(input.Code)),
		"user_id", input.UserID,
		"usage_id", redemption.Usage.ID,
		"final_amount", redemption.Usage.FinalAmount.String(),
		"commission_amount", redemption.Usage.CommissionAmount.String(),
	)
	return redemption, nil
}

// Deactivate 停用优惠码，已停用时直接返回
func (s *CouponService) Deactivate(ctx context.Context, id uint) (*models.CouponCode, error) {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		logger.FromContext(ctx).Errorw("coupon_fetch_failed", "coupon_id", id, "error", err)
		return nil, internalError(err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	now := s.clock.now()
	affected, err := s.couponRepo.Deactivate(id, now)
	if err != nil {
		logger.FromContext(ctx).Errorw("coupon_deactivate_failed", "coupon_id", id, "error", err)
		return nil, internalError(err)
	}
	if affected > 0 {
		coupon.IsActive = false
		coupon.UpdatedAt = now
		logger.FromContext(ctx).Infow("coupon_deactivated", "coupon_id", id, "code", coupon.Code)
	}
	return coupon, nil
}

// DeactivateExpired 停用所有已过期的优惠码
func (s *CouponService) DeactivateExpired(ctx context.Context) (int64, error) {
	affected, err := s.couponRepo.DeactivateExpired(s.clock.now())
	if err != nil {
		logger.FromContext(ctx).Errorw("coupon_expire_sweep_failed", "error", err)
		return 0, internalError(err)
	}
	if affected > 0 {
		logger.FromContext(ctx).Infow("coupon_expire_sweep_done", "deactivated", affected)
	}
	return affected, nil
}

// ListCodes 优惠码列表
func (s *CouponService) ListCodes(ctx context.Context, filter repository.CouponListFilter) ([]models.CouponCode, int64, error) {
	filter.Code = strings.ToUpper(strings.TrimSpace(filter.Code))
	rows, total, err := s.couponRepo.List(filter)
	if err != nil {
		logger.FromContext(ctx).Errorw("coupon_list_failed", "error", err)
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// ListUsages 优惠码使用记录
func (s *CouponService) ListUsages(ctx context.Context, filter repository.CouponUsageListFilter) ([]models.CouponUsage, int64, error) {
	rows, total, err := s.usageRepo.List(filter)
	if err != nil {
		logger.FromContext(ctx).Errorw("coupon_usage_list_failed", "error", err)
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

func (s *CouponService) evaluate(
	couponRepo repository.CouponRepository,
	usageRepo repository.CouponUsageRepository,
	affiliateRepo repository.AffiliateRepository,
	code string,
	userID uint,
	amount models.Money,
	forUpdate bool,
) (*CouponQuote, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" || userID == 0 || amount.Decimal.IsNegative() {
		return nil, ErrInvalidInput
	}

	var (
		coupon *models.CouponCode
		err    error
	)
	if forUpdate {
		coupon, err = couponRepo.GetByCodeForUpdate(trimmed)
	} else {
		coupon, err = couponRepo.GetByCode(trimmed)
	}
	if err != nil {
		return nil, internalError(err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if !coupon.IsActive {
		return nil, ErrCouponInactive
	}
	now := s.clock.now()
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return nil, ErrCouponNotStarted
	}
	if !coupon.IsWithinWindow(now) {
		return nil, ErrCouponExpired
	}
	if !coupon.HasRemainingUsage() {
		return nil, ErrCouponUsageLimit
	}

	used, err := usageRepo.GetByCodeAndUser(coupon.ID, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if used != nil {
		return nil, ErrCouponAlreadyUsed
	}

	original := models.NewMoneyFromDecimal(amount.Decimal)
	if coupon.MinimumAmount.Decimal.IsPositive() && original.Decimal.LessThan(coupon.MinimumAmount.Decimal) {
		return nil, &CouponMinAmountError{Minimum: coupon.MinimumAmount.String()}
	}

	discount := calculateCouponDiscount(coupon, original)
	final := models.NewMoneyFromDecimal(original.Decimal.Sub(discount.Decimal))

	var partner *models.AffiliatePartner
	if coupon.PartnerID != nil {
		partner, err = affiliateRepo.GetPartnerByID(*coupon.PartnerID)
		if err != nil {
			return nil, internalError(err)
		}
	}
	commission := calculateCouponCommission(coupon, partner, final)

	return &CouponQuote{
		Coupon:           coupon,
		OriginalAmount:   original,
		DiscountAmount:   discount,
		FinalAmount:      final,
		CommissionAmount: commission,
		partner:          partner,
	}, nil
}

// calculateCouponDiscount 百分比折扣受最大优惠限制，任何折扣都不超过金额本身
func calculateCouponDiscount(coupon *models.CouponCode, amount models.Money) models.Money {
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case constants.DiscountTypePercentage:
		discount = amount.Decimal.Mul(coupon.DiscountValue).Div(hundred)
		if coupon.MaxDiscount.Decimal.IsPositive() && discount.GreaterThan(coupon.MaxDiscount.Decimal) {
			discount = coupon.MaxDiscount.Decimal
		}
	case constants.DiscountTypeFixed:
		discount = coupon.DiscountValue
	default:
		discount = decimal.Zero
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(amount.Decimal) {
		discount = amount.Decimal
	}
	return models.NewMoneyFromDecimal(discount)
}

// calculateCouponCommission 优惠码未配置佣金规则时按伙伴佣金比例计算；伙伴未激活时不计佣金
func calculateCouponCommission(coupon *models.CouponCode, partner *models.AffiliatePartner, final models.Money) models.Money {
	if partner == nil || partner.Status != constants.PartnerStatusActive {
		return models.NewMoney(0)
	}
	var commission decimal.Decimal
	switch coupon.CommissionType {
	case constants.CommissionRulePercentage:
		commission = final.Decimal.Mul(coupon.CommissionValue).Div(hundred)
	case constants.CommissionRuleFixed:
		commission = coupon.CommissionValue
	default:
		commission = final.Decimal.Mul(partner.CommissionRate).Div(hundred)
	}
	if commission.IsNegative() {
		commission = decimal.Zero
	}
	return models.NewMoneyFromDecimal(commission)
}

func validateCouponRules(input CreateCouponCodeInput) error {
	if !input.DiscountValue.IsPositive() {
		return newKindError(ErrValidation, "discount value must be positive")
	}
	if input.DiscountType == constants.DiscountTypePercentage && input.DiscountValue.GreaterThan(hundred) {
		return newKindError(ErrValidation, "percentage discount cannot exceed 100")
	}
	if input.MaxDiscount.Decimal.IsNegative() || input.MinimumAmount.Decimal.IsNegative() {
		return newKindError(ErrValidation, "amount limits cannot be negative")
	}
	switch input.CommissionType {
	case constants.CommissionRulePercentage:
		if !input.CommissionValue.IsPositive() || input.CommissionValue.GreaterThan(hundred) {
			return newKindError(ErrValidation, "commission percentage must be within (0, 100]")
		}
	case constants.CommissionRuleFixed:
		if !input.CommissionValue.IsPositive() {
			return newKindError(ErrValidation, "fixed commission must be positive")
		}
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.EndsAt.After(*input.StartsAt) {
		return newKindError(ErrValidation, "ends_at must be after starts_at")
	}
	return nil
}

func generateCouponCode(prefix string, length int) (string, error) {
	var builder strings.Builder
	builder.Grow(len(prefix) + length)
	builder.WriteString(prefix)
	limit := big.NewInt(int64(len(couponCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		builder.WriteByte(couponCodeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}
