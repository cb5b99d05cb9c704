package service

import (
	"context"
	"errors"

	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartnerCommissionStatistics 单个伙伴的订阅佣金汇总
type PartnerCommissionStatistics struct {
	PartnerID   uint                     `json:"partner_id"`
	TotalCount  int64                    `json:"total_count"`
	TotalAmount models.Money             `json:"total_amount"`
	ByStatus    map[string]PaymentBucket `json:"by_status"`
}

// CommissionService 订阅佣金服务
type CommissionService struct {
	repo             repository.CommissionRepository
	affiliateRepo    repository.AffiliateRepository
	subscriptionRepo repository.SubscriptionRepository
	clock            Clock
}

// NewCommissionService 创建订阅佣金服务
func NewCommissionService(repo repository.CommissionRepository, affiliateRepo repository.AffiliateRepository, subscriptionRepo repository.SubscriptionRepository, clock Clock) *CommissionService {
	return &CommissionService{
		repo:             repo,
		affiliateRepo:    affiliateRepo,
		subscriptionRepo: subscriptionRepo,
		clock:            clock,
	}
}

// CreateForSubscription 为订阅生成佣金：伙伴必须处于 active，每个订阅只生成一次
// 金额 = 订阅金额 × 佣金比例 / 100，四舍五入到整数。
func (s *CommissionService) CreateForSubscription(ctx context.Context, partnerID, subscriptionID uint) (*models.Commission, error) {
	var created *models.Commission
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		partner, err := s.affiliateRepo.WithTx(tx).GetPartnerByIDForUpdate(partnerID)
		if err != nil {
			return err
		}
		if partner == nil {
			return ErrPartnerNotFound
		}
		if partner.Status != constants.PartnerStatusActive {
			return ErrPartnerNotActive
		}
		subscription, err := s.subscriptionRepo.WithTx(tx).GetByID(subscriptionID)
		if err != nil {
			return err
		}
		if subscription == nil {
			return ErrSubscriptionMissing
		}
		repoTx := s.repo.WithTx(tx)
		existing, err := repoTx.GetCommissionBySubscription(subscriptionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrCommissionExists
		}

		now := s.clock.now()
		commission := &models.Commission{
			PartnerID:      partner.ID,
			SubscriptionID: subscription.ID,
			UserID:         subscription.UserID,
			BaseAmount:     subscription.Amount,
			CommissionRate: partner.CommissionRate,
			Amount:         models.NewMoneyFromDecimal(subscription.Amount.Decimal.Mul(partner.CommissionRate).Div(hundred)),
			Status:         constants.CommissionStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repoTx.CreateCommission(commission); err != nil {
			if isUniqueViolation(err) {
				return ErrCommissionExists
			}
			return err
		}
		created = commission
		return nil
	})
	if err != nil {
		if !isKindError(err) {
			err = internalError(err)
		}
		if errors.Is(err, ErrInternal) {
			logger.FromContext(ctx).Errorw("commission_create_failed", "partner_id", partnerID, "subscription_id", subscriptionID, "error", err)
		}
		return nil, err
	}
	logger.FromContext(ctx).Infow("commission_created",
		"commission_id", created.ID,
		"partner_id", partnerID,
		"subscription_id", subscriptionID,
		"amount", created.Amount.String(),
	)
	return created, nil
}

// ListCommissions 订阅佣金列表
func (s *CommissionService) ListCommissions(ctx context.Context, filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	rows, total, err := s.repo.ListCommissions(filter)
	if err != nil {
		logger.FromContext(ctx).Errorw("commission_list_failed", "error", err)
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// GetPartnerStatistics 伙伴佣金按状态汇总
func (s *CommissionService) GetPartnerStatistics(ctx context.Context, partnerID uint) (*PartnerCommissionStatistics, error) {
	partner, err := s.affiliateRepo.GetPartnerByID(partnerID)
	if err != nil {
		logger.FromContext(ctx).Errorw("commission_partner_fetch_failed", "partner_id", partnerID, "error", err)
		return nil, internalError(err)
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	rows, err := s.repo.AggregateCommissionsByPartner(partnerID)
	if err != nil {
		logger.FromContext(ctx).Errorw("commission_statistics_failed", "partner_id", partnerID, "error", err)
		return nil, internalError(err)
	}
	stats := &PartnerCommissionStatistics{
		PartnerID: partnerID,
		ByStatus:  make(map[string]PaymentBucket),
	}
	total := decimal.Zero
	for _, row := range rows {
		stats.TotalCount += row.Count
		total = total.Add(row.Total)
		stats.ByStatus[row.Status] = addBucket(stats.ByStatus[row.Status], row.Count, row.Total)
	}
	stats.TotalAmount = models.NewMoneyFromDecimal(total)
	return stats, nil
}
