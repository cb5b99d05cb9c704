package router

import (
	"fmt"
	"strings"

	"github.com/sarvcast-next/internal/cache"
	"github.com/sarvcast-next/internal/config"
	adminhandlers "github.com/sarvcast-next/internal/http/handlers/admin"
	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sc"
	}
	couponRule := NewRateLimitRule(fmt.Sprintf("%s:rate:coupon", redisPrefix), cfg.RateLimit.Coupon)
	couponLimiter := RateLimitMiddleware(redisClientOf(c), couponRule, KeyByIPAndJSONField("code"))

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", func(ctx *gin.Context) {
		response.Success(ctx, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	admin := apiV1.Group("/admin")
	{
		// 图片时间轴
		episodes := admin.Group("/episodes/:id/timeline")
		{
			episodes.GET("", adminHandler.GetTimeline)
			episodes.PUT("", adminHandler.SaveTimeline)
			episodes.DELETE("", adminHandler.DeleteTimeline)
			episodes.POST("/validate", adminHandler.ValidateTimeline)
			episodes.GET("/at", adminHandler.GetImageAt)
			episodes.GET("/keyframes", adminHandler.GetKeyFrames)
			episodes.GET("/stats", adminHandler.GetTimelineStatistics)
		}

		// 优惠码
		coupons := admin.Group("/coupons")
		{
			coupons.POST("", adminHandler.CreateCoupon)
			coupons.GET("", adminHandler.ListCoupons)
			coupons.POST("/validate", couponLimiter, adminHandler.ValidateCoupon)
			coupons.POST("/redeem", couponLimiter, adminHandler.RedeemCoupon)
			coupons.POST("/:id/deactivate", adminHandler.DeactivateCoupon)
			coupons.GET("/:id/usages", adminHandler.ListCouponUsages)
		}

		// 合作伙伴
		partners := admin.Group("/partners")
		{
			partners.POST("", adminHandler.CreatePartner)
			partners.GET("", adminHandler.ListPartners)
			partners.GET("/:id", adminHandler.GetPartner)
			partners.POST("/:id/verify", adminHandler.VerifyPartner)
			partners.POST("/:id/suspend", adminHandler.SuspendPartner)
			partners.PUT("/:id/bank-details", adminHandler.UpdatePartnerBankDetails)
			partners.GET("/:id/commission-stats", adminHandler.GetPartnerCommissionStatistics)
		}

		// 订阅佣金
		admin.POST("/commissions", adminHandler.CreateCommission)
		admin.GET("/commissions", adminHandler.ListCommissions)

		// 佣金打款
		payments := admin.Group("/payments")
		{
			payments.GET("", adminHandler.ListPayments)
			payments.GET("/statistics", adminHandler.GetPaymentStatistics)
			payments.POST("/manual", adminHandler.CreateManualPayment)
			payments.POST("/bulk-process", adminHandler.BulkProcessPayments)
			payments.GET("/:id", adminHandler.GetPayment)
			payments.POST("/:id/process", adminHandler.ProcessPayment)
			payments.POST("/:id/paid", adminHandler.MarkPaymentPaid)
			payments.POST("/:id/failed", adminHandler.MarkPaymentFailed)
		}
	}

	return r
}

// redisClientOf 读缓存走 Redis 时复用同一连接做限流，内存缓存时不限流
func redisClientOf(c *provider.Container) *redis.Client {
	if c == nil {
		return nil
	}
	if store, ok := c.Cache.(*cache.RedisStore); ok && store != nil {
		return store.Client()
	}
	return nil
}
