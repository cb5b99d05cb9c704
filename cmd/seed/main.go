package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/provider"
	"github.com/sarvcast-next/internal/service"
	"github.com/sarvcast-next/internal/timeline"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.ToDBOptions()); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	ctx := context.Background()
	container := provider.NewContainer(cfg)

	// 添加单集
	episodes := []models.Episode{
		{Title: "The Lion and the Mouse", Duration: 120},
		{Title: "The Tortoise and the Hare", Duration: 240},
	}
	for i := range episodes {
		var existing models.Episode
		if err := models.DB.Where("title = ?", episodes[i].Title).First(&existing).Error; err == nil {
			stdLog.Printf("Episode already exists: %s", existing.Title)
			episodes[i] = existing
			continue
		}
		if err := models.DB.Create(&episodes[i]).Error; err != nil {
			stdLog.Printf("Failed to create episode %s: %v", episodes[i].Title, err)
			continue
		}
		stdLog.Printf("Created episode: %s", episodes[i].Title)
	}

	// 图片时间轴：每 30 秒一张图，首帧为关键帧
	for _, episode := range episodes {
		if episode.ID == 0 {
			continue
		}
		segments := make([]timeline.Segment, 0, episode.Duration/30)
		for start := 0; start < episode.Duration; start += 30 {
			seg := timeline.NewSegment(float64(start), float64(start+30), fmt.Sprintf("https://cdn.sarvcast.ir/episodes/%d/scene-%d.jpg", episode.ID, start/30+1))
			seg.IsKeyFrame = start == 0
			seg.TransitionType = constants.TransitionFade
			segments = append(segments, seg)
		}
		result, err := container.TimelineService.SaveTimeline(ctx, episode.ID, segments, service.TimelineSaveOptions{})
		if err != nil {
			stdLog.Printf("Failed to save timeline for episode %d: %v", episode.ID, err)
			continue
		}
		stdLog.Printf("Saved timeline for episode %d (%d segments, %d warnings)", episode.ID, len(segments), len(result.Warnings))
	}

	// 合作伙伴
	partners := []service.CreatePartnerInput{
		{Name: "Sara Teacher", Email: "sara@example.com", Type: constants.PartnerTypeTeacher},
		{Name: "Kids Story Channel", Email: "channel@example.com", Type: constants.PartnerTypeInfluencer, FollowerCount: 150000},
		{Name: "Bright Minds School", Email: "school@example.com", Type: constants.PartnerTypeSchool},
	}
	partnerIDs := make([]uint, 0, len(partners))
	for _, input := range partners {
		var existing models.AffiliatePartner
		if err := models.DB.Where("email = ?", input.Email).First(&existing).Error; err == nil {
			stdLog.Printf("Partner already exists: %s", existing.Email)
			partnerIDs = append(partnerIDs, existing.ID)
			continue
		}
		partner, err := container.AffiliatePartnerService.Create(ctx, input)
		if err != nil {
			stdLog.Printf("Failed to create partner %s: %v", input.Name, err)
			continue
		}
		if _, err := container.AffiliatePartnerService.Verify(ctx, partner.ID); err != nil {
			stdLog.Printf("Failed to verify partner %s: %v", input.Name, err)
		}
		stdLog.Printf("Created partner: %s (tier %s)", partner.Name, partner.Tier)
		partnerIDs = append(partnerIDs, partner.ID)
	}

	// 优惠码：每个伙伴一个 20% 折扣码，另加一个公共满减码
	endsAt := time.Now().AddDate(0, 3, 0)
	for _, partnerID := range partnerIDs {
		var existing int64
		if err := models.DB.Model(&models.CouponCode{}).Where("partner_id = ?", partnerID).Count(&existing).Error; err == nil && existing > 0 {
			stdLog.Printf("Partner %d already has coupons", partnerID)
			continue
		}
		id := partnerID
		coupon, err := container.CouponService.CreateCode(ctx, service.CreateCouponCodeInput{
			PartnerID:       &id,
			DiscountType:    constants.DiscountTypePercentage,
			DiscountValue:   decimal.NewFromInt(20),
			MaxDiscount:     models.NewMoney(500000),
			CommissionType:  constants.CommissionRulePercentage,
			CommissionValue: decimal.NewFromInt(10),
			EndsAt:          &endsAt,
			Description:     "seed partner coupon",
		})
		if err != nil {
			stdLog.Printf("Failed to create coupon for partner %d: %v", partnerID, err)
			continue
		}
		stdLog.Printf("Created coupon: %s", coupon.Code)
	}
	var welcome models.CouponCode
	if err := models.DB.Where("code = ?", "WELCOME50").First(&welcome).Error; err != nil {
		if _, err := container.CouponService.CreateCode(ctx, service.CreateCouponCodeInput{
			Code:          "WELCOME50",
			DiscountType:  constants.DiscountTypeFixed,
			DiscountValue: decimal.NewFromInt(50000),
			MinimumAmount: models.NewMoney(200000),
			UsageLimit:    1000,
			Description:   "seed welcome coupon",
		}); err != nil {
			stdLog.Printf("Failed to create coupon WELCOME50: %v", err)
		} else {
			stdLog.Println("Created coupon: WELCOME50")
		}
	} else {
		stdLog.Println("Coupon already exists: WELCOME50")
	}

	// 订阅
	subscription := models.Subscription{
		UserID:    1,
		PlanType:  "monthly",
		Amount:    models.NewMoney(990000),
		Status:    constants.SubscriptionStatusActive,
		StartDate: time.Now(),
	}
	if err := models.DB.Where("user_id = ? AND plan_type = ?", subscription.UserID, subscription.PlanType).FirstOrCreate(&subscription).Error; err != nil {
		stdLog.Printf("Failed to create subscription: %v", err)
	}

	fmt.Println("\n✅ Test data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 2 Episodes with image timelines")
	fmt.Printf("- %d Affiliate partners (verified)\n", len(partnerIDs))
	fmt.Println("- Partner coupons + WELCOME50")
	fmt.Println("- 1 Subscription")
}
