package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestCouponValidateMinimumAmountAndPercentage(t *testing.T) {
	env := setupSettlementTest(t, "coupon_validate_min")
	ctx := context.Background()
	env.percentCoupon(t, "SPRING10", 10, nil, 100000)

	_, err := env.coupons.Validate(ctx, "SPRING10", 1, models.NewMoney(50000))
	if !errors.Is(err, ErrCouponMinAmount) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected minimum amount failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "minimum") || !strings.Contains(err.Error(), "100000") {
		t.Fatalf("unexpected message: %v", err)
	}

	quote, err := env.coupons.Validate(ctx, "spring10", 1, models.NewMoney(150000))
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !moneyEquals(quote.DiscountAmount, 15000) || !moneyEquals(quote.FinalAmount, 135000) {
		t.Fatalf("unexpected quote: discount=%s final=%s", quote.DiscountAmount, quote.FinalAmount)
	}
	if !moneyEquals(quote.CommissionAmount, 0) {
		t.Fatalf("coupon without partner must not earn commission, got %s", quote.CommissionAmount)
	}

	var usages int64
	env.db.Model(&models.CouponUsage{}).Count(&usages)
	if usages != 0 {
		t.Fatalf("validate must not write usages")
	}
}

func TestCouponValidateChecksInOrder(t *testing.T) {
	env := setupSettlementTest(t, "coupon_validate_order")
	ctx := context.Background()

	if _, err := env.coupons.Validate(ctx, "MISSING", 1, models.NewMoney(1000)); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	inactive := false
	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          "OFFLINE1",
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(1000),
		IsActive:      &inactive,
		MinimumAmount: models.NewMoney(999999),
	}); err != nil {
		t.Fatalf("create inactive coupon failed: %v", err)
	}
	if _, err := env.coupons.Validate(ctx, "OFFLINE1", 1, models.NewMoney(10)); !errors.Is(err, ErrCouponInactive) {
		t.Fatalf("inactive check must win over minimum amount, got %v", err)
	}

	past := env.now.Add(-48 * time.Hour)
	ended := env.now.Add(-time.Hour)
	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          "ENDED01",
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(1000),
		StartsAt:      &past,
		EndsAt:        &ended,
	}); err != nil {
		t.Fatalf("create expired coupon failed: %v", err)
	}
	if _, err := env.coupons.Validate(ctx, "ENDED01", 1, models.NewMoney(5000)); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expected expired, got %v", err)
	}

	future := env.now.Add(time.Hour)
	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          "LATER01",
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(1000),
		StartsAt:      &future,
	}); err != nil {
		t.Fatalf("create future coupon failed: %v", err)
	}
	if _, err := env.coupons.Validate(ctx, "LATER01", 1, models.NewMoney(5000)); !errors.Is(err, ErrCouponNotStarted) {
		t.Fatalf("expected not started, got %v", err)
	}
}

func TestCouponDiscountCapAndFixedBounds(t *testing.T) {
	env := setupSettlementTest(t, "coupon_discount_bounds")
	ctx := context.Background()

	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          "HALFCAP",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(50),
		MaxDiscount:   models.NewMoney(10000),
	}); err != nil {
		t.Fatalf("create capped coupon failed: %v", err)
	}
	quote, err := env.coupons.Validate(ctx, "HALFCAP", 1, models.NewMoney(100000))
	if err != nil || !moneyEquals(quote.DiscountAmount, 10000) || !moneyEquals(quote.FinalAmount, 90000) {
		t.Fatalf("expected cap 10000, got %+v err=%v", quote, err)
	}

	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          "BIGFIXED",
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(200000),
	}); err != nil {
		t.Fatalf("create fixed coupon failed: %v", err)
	}
	quote, err = env.coupons.Validate(ctx, "BIGFIXED", 1, models.NewMoney(150000))
	if err != nil || !moneyEquals(quote.DiscountAmount, 150000) || !moneyEquals(quote.FinalAmount, 0) {
		t.Fatalf("fixed discount must not exceed amount, got %+v err=%v", quote, err)
	}

	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          "ODDPCT",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: decimal.RequireFromString("12.5"),
	}); err != nil {
		t.Fatalf("create odd percentage coupon failed: %v", err)
	}
	quote, err = env.coupons.Validate(ctx, "ODDPCT", 1, models.NewMoney(1001))
	if err != nil || !moneyEquals(quote.DiscountAmount, 125) || !moneyEquals(quote.FinalAmount, 876) {
		t.Fatalf("expected 125.125 to round to 125, got %+v err=%v", quote, err)
	}
}

func TestCouponCreateGeneratesPrefixedCodes(t *testing.T) {
	env := setupSettlementTest(t, "coupon_generate")
	ctx := context.Background()
	teacher := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)

	coupon := env.percentCoupon(t, "", 10, &teacher.ID, 0)
	if !strings.HasPrefix(coupon.Code, "TCH") || len(coupon.Code) != len("TCH")+6 {
		t.Fatalf("unexpected generated code %q", coupon.Code)
	}
	if coupon.PartnerType != constants.PartnerTypeTeacher {
		t.Fatalf("partner type must follow partner, got %s", coupon.PartnerType)
	}
	for _, r := range coupon.Code {
		if !strings.ContainsRune(couponCodeAlphabet, r) {
			t.Fatalf("generated code contains invalid rune %q", r)
		}
	}

	generic := env.percentCoupon(t, "", 5, nil, 0)
	if !strings.HasPrefix(generic.Code, "PROMO") || len(generic.Code) != len("PROMO")+6 {
		t.Fatalf("unexpected generic code %q", generic.Code)
	}

	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          strings.ToLower(coupon.Code),
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(1),
	}); !errors.Is(err, ErrCouponCodeExists) {
		t.Fatalf("expected duplicate code conflict, got %v", err)
	}

	missing := uint(9999)
	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		PartnerID:     &missing,
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(1),
	}); !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("expected partner not found, got %v", err)
	}

	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(120),
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for 120%%, got %v", err)
	}
}

func TestCouponRedeemIsExclusivePerUser(t *testing.T) {
	env := setupSettlementTest(t, "coupon_redeem_exclusive")
	ctx := context.Background()
	influencer := env.activePartner(t, constants.PartnerTypeInfluencer, 20000, map[string]interface{}{"iban": "IR010000"})
	env.percentCoupon(t, "INFLUX10", 10, &influencer.ID, 0)
	sub := env.subscription(t, 42, 150000)

	first, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "INFLUX10", UserID: 42, SubscriptionID: &sub.ID})
	if err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	if !moneyEquals(first.Usage.FinalAmount, 135000) || !moneyEquals(first.Usage.CommissionAmount, 20250) {
		t.Fatalf("unexpected usage amounts: %+v", first.Usage)
	}
	if first.Payment == nil || first.Payment.Status != constants.CommissionPaymentStatusPending || !moneyEquals(first.Payment.Amount, 20250) {
		t.Fatalf("expected pending payment of 20250, got %+v", first.Payment)
	}

	_, err = env.coupons.Redeem(ctx, RedeemCouponInput{Code: "INFLUX10", UserID: 42, Amount: models.NewMoney(150000)})
	if !errors.Is(err, ErrCouponAlreadyUsed) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on second redeem, got %v", err)
	}

	var usages, payments int64
	env.db.Model(&models.CouponUsage{}).Count(&usages)
	env.db.Model(&models.CommissionPayment{}).Count(&payments)
	if usages != 1 || payments != 1 {
		t.Fatalf("expected exactly one usage and payment, got usages=%d payments=%d", usages, payments)
	}
	var coupon models.CouponCode
	if err := env.db.Where("code = ?", "INFLUX10").First(&coupon).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if coupon.UsageCount != 1 {
		t.Fatalf("expected usage_count 1, got %d", coupon.UsageCount)
	}

	if _, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "INFLUX10", UserID: 43, Amount: models.NewMoney(150000)}); err != nil {
		t.Fatalf("other user should still redeem, got %v", err)
	}
}

func TestCouponRedeemRespectsUsageLimit(t *testing.T) {
	env := setupSettlementTest(t, "coupon_usage_limit")
	ctx := context.Background()
	if _, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          "ONESHOT",
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(1000),
		UsageLimit:    1,
	}); err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "ONESHOT", UserID: 1, Amount: models.NewMoney(5000)}); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	if _, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "ONESHOT", UserID: 2, Amount: models.NewMoney(5000)}); !errors.Is(err, ErrCouponUsageLimit) {
		t.Fatalf("expected usage limit, got %v", err)
	}
}

func TestCouponRedeemPaymentKeepsBankSnapshot(t *testing.T) {
	env := setupSettlementTest(t, "coupon_snapshot")
	ctx := context.Background()
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, map[string]interface{}{"iban": "IR-OLD"})
	env.percentCoupon(t, "TEACH20", 20, &partner.ID, 0)

	redemption, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "TEACH20", UserID: 5, Amount: models.NewMoney(100000)})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if redemption.Payment == nil {
		t.Fatalf("expected commission payment")
	}
	if _, err := env.partners.UpdateBankDetails(ctx, partner.ID, map[string]interface{}{"iban": "IR-NEW"}); err != nil {
		t.Fatalf("update bank details failed: %v", err)
	}

	payment, err := env.payments.GetPayment(ctx, redemption.Payment.ID)
	if err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if !strings.Contains(string(payment.PaymentDetails), "IR-OLD") {
		t.Fatalf("payment snapshot changed: %s", string(payment.PaymentDetails))
	}
}

func TestCouponRedeemWithoutActivePartnerSkipsPayment(t *testing.T) {
	env := setupSettlementTest(t, "coupon_suspended_partner")
	ctx := context.Background()
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)
	env.percentCoupon(t, "PAUSED10", 10, &partner.ID, 0)
	if _, err := env.partners.Suspend(ctx, partner.ID, "under review"); err != nil {
		t.Fatalf("suspend failed: %v", err)
	}

	redemption, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "PAUSED10", UserID: 9, Amount: models.NewMoney(10000)})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if redemption.Payment != nil || !moneyEquals(redemption.Usage.CommissionAmount, 0) {
		t.Fatalf("suspended partner must not earn commission: %+v", redemption)
	}
}

func TestDeactivateExpiredCoupons(t *testing.T) {
	env := setupSettlementTest(t, "coupon_expire_sweep")
	ctx := context.Background()
	ends := env.now.Add(time.Hour)
	coupon, err := env.coupons.CreateCode(ctx, CreateCouponCodeInput{
		Code:          "SHORTLIVED",
		DiscountType:  constants.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(100),
		EndsAt:        &ends,
	})
	if err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	if n, err := env.coupons.DeactivateExpired(ctx); err != nil || n != 0 {
		t.Fatalf("nothing should expire yet, got n=%d err=%v", n, err)
	}
	env.now = env.now.Add(2 * time.Hour)
	if n, err := env.coupons.DeactivateExpired(ctx); err != nil || n != 1 {
		t.Fatalf("expected one expired coupon, got n=%d err=%v", n, err)
	}
	if _, err := env.coupons.Validate(ctx, coupon.Code, 1, models.NewMoney(1000)); !errors.Is(err, ErrCouponInactive) {
		t.Fatalf("expected inactive after sweep, got %v", err)
	}

	deactivated, err := env.coupons.Deactivate(ctx, coupon.ID)
	if err != nil || deactivated.IsActive {
		t.Fatalf("deactivate should be idempotent, got %+v err=%v", deactivated, err)
	}
}

func TestCouponRedeemRollsBackWhenPaymentInsertFails(t *testing.T) {
	env := setupSettlementTest(t, "coupon_redeem_rollback")
	ctx := context.Background()
	partner := env.activePartner(t, constants.PartnerTypeTeacher, 0, nil)
	coupon := env.percentCoupon(t, "ROLLBACK20", 20, &partner.ID, 0)

	beforeCreateOnce(t, env.db, "commission_payments", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("commission payment store unavailable"))
	})

	_, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "ROLLBACK20", UserID: 11, Amount: models.NewMoney(100000)})
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	var usages int64
	env.db.Model(&models.CouponUsage{}).Count(&usages)
	if usages != 0 {
		t.Fatalf("usage row must be rolled back, got %d", usages)
	}
	var payments int64
	env.db.Model(&models.CommissionPayment{}).Count(&payments)
	if payments != 0 {
		t.Fatalf("no payment may survive a failed redeem, got %d", payments)
	}
	var reloaded models.CouponCode
	if err := env.db.First(&reloaded, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloaded.UsageCount != 0 {
		t.Fatalf("usage count must be rolled back, got %d", reloaded.UsageCount)
	}

	if _, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "ROLLBACK20", UserID: 11, Amount: models.NewMoney(100000)}); err != nil {
		t.Fatalf("redeem after rollback should succeed, got %v", err)
	}
}

func TestCouponRedeemConcurrentUsageHitsUniqueIndex(t *testing.T) {
	env := setupSettlementTest(t, "coupon_redeem_unique")
	ctx := context.Background()
	coupon := env.percentCoupon(t, "RACE10", 10, nil, 0)

	// 模拟另一请求在存在性检查之后抢先写入同一用户的使用记录
	beforeCreateOnce(t, env.db, "coupon_usages", func(tx *gorm.DB) {
		execInStatement(tx, "INSERT INTO coupon_usages (coupon_code_id, user_id, status) VALUES (?, ?, ?)",
			coupon.ID, 21, constants.CouponUsageStatusCompleted)
	})

	_, err := env.coupons.Redeem(ctx, RedeemCouponInput{Code: "RACE10", UserID: 21, Amount: models.NewMoney(50000)})
	if !errors.Is(err, ErrCouponAlreadyUsed) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected already used conflict, got %v", err)
	}
	var reloaded models.CouponCode
	if err := env.db.First(&reloaded, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloaded.UsageCount != 0 {
		t.Fatalf("usage count must not move on conflict, got %d", reloaded.UsageCount)
	}
}
