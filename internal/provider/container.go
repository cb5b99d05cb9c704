package provider

import (
	"context"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/cache"
	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/queue"
	"github.com/sarvcast-next/internal/repository"
	"github.com/sarvcast-next/internal/service"
	"github.com/sarvcast-next/internal/timeline"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Cache       cache.Store

	// Repositories
	EpisodeRepo      repository.EpisodeRepository
	TimelineRepo     repository.TimelineRepository
	SubscriptionRepo repository.SubscriptionRepository
	CouponRepo       repository.CouponRepository
	CouponUsageRepo  repository.CouponUsageRepository
	AffiliateRepo    repository.AffiliateRepository
	CommissionRepo   repository.CommissionRepository

	// Services
	TimelineService          *service.TimelineService
	AffiliatePartnerService  *service.AffiliatePartnerService
	CouponService            *service.CouponService
	CommissionService        *service.CommissionService
	CommissionPaymentService *service.CommissionPaymentService
	NotificationService      *service.NotificationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	return NewContainerWithDB(cfg, models.DB)
}

// NewContainerWithDB 使用指定数据库初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	c := &Container{
		Config: cfg,
		Cache:  buildCacheStore(&cfg.Redis),
	}

	// 初始化队列客户端
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			c.QueueClient = qc
		}
	}

	c.initRepositories(db)
	c.initServices()
	return c
}

func buildCacheStore(cfg *config.RedisConfig) cache.Store {
	store := cache.NewRedisStore(cfg)
	if store == nil {
		return cache.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
		return cache.NewMemoryStore()
	}
	return store
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.EpisodeRepo = repository.NewEpisodeRepository(db)
	c.TimelineRepo = repository.NewTimelineRepository(db)
	c.SubscriptionRepo = repository.NewSubscriptionRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
}

func (c *Container) initServices() {
	rules := AffiliateRulesFromConfig(c.Config.Affiliate)
	var clock service.Clock

	c.TimelineService = service.NewTimelineService(c.EpisodeRepo, c.TimelineRepo, service.TimelineServiceOptions{
		Validator:          timeline.NewValidator(c.Config.Timeline.ToRules()),
		Store:              c.Cache,
		TTL:                time.Duration(c.Config.Cache.TimelineTTLSeconds) * time.Second,
		OptimizeBeforeSave: c.Config.Timeline.OptimizeBeforeSave,
		Clock:              clock,
	})
	c.NotificationService = service.NewNotificationService(c.QueueClient, c.AffiliateRepo, service.LogSender{})
	c.AffiliatePartnerService = service.NewAffiliatePartnerService(c.AffiliateRepo, rules, clock)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.CouponUsageRepo, c.AffiliateRepo, c.CommissionRepo, c.SubscriptionRepo, rules, clock)
	c.CommissionService = service.NewCommissionService(c.CommissionRepo, c.AffiliateRepo, c.SubscriptionRepo, clock)
	c.CommissionPaymentService = service.NewCommissionPaymentService(c.CommissionRepo, c.AffiliateRepo, c.NotificationService, rules, clock)
}

// AffiliateRulesFromConfig 将配置转换为推广规则，缺省项由服务层补齐
func AffiliateRulesFromConfig(cfg config.AffiliateConfig) service.AffiliateRules {
	rules := service.AffiliateRules{
		MacroFollowers:    cfg.InfluencerMacroFollowers,
		MidFollowers:      cfg.InfluencerMidFollowers,
		DefaultCodePrefix: strings.ToUpper(strings.TrimSpace(cfg.DefaultCodePrefix)),
		CodeLength:        cfg.CodeLength,
		Currency:          strings.ToUpper(strings.TrimSpace(cfg.Currency)),
	}
	if len(cfg.TierRates) > 0 {
		rules.TierRates = make(map[string]decimal.Decimal, len(cfg.TierRates))
		for tier, rate := range cfg.TierRates {
			rules.TierRates[strings.ToLower(strings.TrimSpace(tier))] = decimal.NewFromFloat(rate).Round(2)
		}
	}
	if len(cfg.CodePrefixes) > 0 {
		rules.CodePrefixes = make(map[string]string, len(cfg.CodePrefixes))
		for partnerType, prefix := range cfg.CodePrefixes {
			rules.CodePrefixes[strings.ToLower(strings.TrimSpace(partnerType))] = strings.ToUpper(strings.TrimSpace(prefix))
		}
	}
	return rules
}
