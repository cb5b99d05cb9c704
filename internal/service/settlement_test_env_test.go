package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (n *recordingNotifier) NotifyCommissionPaid(_ context.Context, payment *models.CommissionPayment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, payment.ID)
	return n.err
}

type settlementTestEnv struct {
	db          *gorm.DB
	now         time.Time
	partners    *AffiliatePartnerService
	coupons     *CouponService
	commissions *CommissionService
	payments    *CommissionPaymentService
	notifier    *recordingNotifier
}

func setupSettlementTest(t *testing.T, name string) *settlementTestEnv {
	t.Helper()
	db := setupServiceTestDB(t, name)
	env := &settlementTestEnv{
		db:       db,
		now:      time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
		notifier: &recordingNotifier{},
	}
	clock := Clock(func() time.Time { return env.now })
	rules := DefaultAffiliateRules()

	affiliateRepo := repository.NewAffiliateRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	env.partners = NewAffiliatePartnerService(affiliateRepo, rules, clock)
	env.coupons = NewCouponService(
		repository.NewCouponRepository(db),
		repository.NewCouponUsageRepository(db),
		affiliateRepo,
		commissionRepo,
		subscriptionRepo,
		rules,
		clock,
	)
	env.commissions = NewCommissionService(commissionRepo, affiliateRepo, subscriptionRepo, clock)
	env.payments = NewCommissionPaymentService(commissionRepo, affiliateRepo, env.notifier, rules, clock)
	return env
}

func (env *settlementTestEnv) activePartner(t *testing.T, partnerType string, followers int, bank map[string]interface{}) *models.AffiliatePartner {
	t.Helper()
	ctx := context.Background()
	partner, err := env.partners.Create(ctx, CreatePartnerInput{
		Name:          "partner-" + partnerType,
		Email:         partnerType + "@example.com",
		Type:          partnerType,
		FollowerCount: followers,
		BankDetails:   bank,
	})
	if err != nil {
		t.Fatalf("create partner failed: %v", err)
	}
	verified, err := env.partners.Verify(ctx, partner.ID)
	if err != nil {
		t.Fatalf("verify partner failed: %v", err)
	}
	return verified
}

func (env *settlementTestEnv) percentCoupon(t *testing.T, code string, percent int64, partnerID *uint, minimum int64) *models.CouponCode {
	t.Helper()
	coupon, err := env.coupons.CreateCode(context.Background(), CreateCouponCodeInput{
		Code:          code,
		PartnerID:     partnerID,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(percent),
		MinimumAmount: models.NewMoney(minimum),
	})
	if err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func (env *settlementTestEnv) manualPayment(t *testing.T, partnerID uint, amount int64, notes string) *models.CommissionPayment {
	t.Helper()
	payment, err := env.payments.CreateManualPayment(context.Background(), CreateManualPaymentInput{
		PartnerID: partnerID,
		Amount:    models.NewMoney(amount),
		Notes:     notes,
	})
	if err != nil {
		t.Fatalf("create manual payment failed: %v", err)
	}
	return payment
}

func (env *settlementTestEnv) subscription(t *testing.T, userID uint, amount int64) models.Subscription {
	t.Helper()
	row := models.Subscription{
		UserID:    userID,
		PlanType:  "monthly",
		Amount:    models.NewMoney(amount),
		Status:    constants.SubscriptionStatusActive,
		StartDate: env.now,
	}
	if err := env.db.Create(&row).Error; err != nil {
		t.Fatalf("create subscription failed: %v", err)
	}
	return row
}

// beforeCreateOnce 在下一次写入 table 前执行 fn（与该次写入同一事务）
func beforeCreateOnce(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()
	name := "test:before_create:" + table
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		fn(tx)
	})
	if err != nil {
		t.Fatalf("register create callback failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Callback().Create().Remove(name) })
}

// execInStatement 在当前语句所在的连接（事务）上执行原始 SQL
func execInStatement(tx *gorm.DB, sql string, args ...interface{}) {
	if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, sql, args...); err != nil {
		_ = tx.AddError(err)
	}
}

func moneyEquals(m models.Money, want int64) bool {
	return m.Decimal.Equal(decimal.NewFromInt(want))
}
