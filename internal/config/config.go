package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/timeline"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Timeline  TimelineConfig  `mapstructure:"timeline"`
	Affiliate AffiliateConfig `mapstructure:"affiliate"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
	// SlowQueryMs 超过该耗时的 SQL 记为慢查询
	SlowQueryMs int `mapstructure:"slow_query_ms"`
}

// ToDBOptions 转换为 models 连接参数
func (c DatabaseConfig) ToDBOptions() models.Options {
	return models.Options{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.Pool.MaxOpenConns,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		ConnMaxLifetime: time.Duration(c.Pool.ConnMaxLifetimeSeconds) * time.Second,
		ConnMaxIdleTime: time.Duration(c.Pool.ConnMaxIdleTimeSeconds) * time.Second,
		SlowThreshold:   time.Duration(c.SlowQueryMs) * time.Millisecond,
	}
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// TimelineConfig 图片时间轴校验配置
type TimelineConfig struct {
	MaxEpisodeSeconds   float64  `mapstructure:"max_episode_seconds"`
	MinSegments         int      `mapstructure:"min_segments"`
	MaxSegments         int      `mapstructure:"max_segments"`
	MinSegmentSeconds   float64  `mapstructure:"min_segment_seconds"`
	MaxSegmentSeconds   float64  `mapstructure:"max_segment_seconds"`
	AllowedExtensions   []string `mapstructure:"allowed_extensions"`
	TrustedDomains      []string `mapstructure:"trusted_domains"`
	MinCoveragePercent  float64  `mapstructure:"min_coverage_percent"`
	MaxUniqueImages     int      `mapstructure:"max_unique_images"`
	MaxGapSeconds       float64  `mapstructure:"max_gap_seconds"`
	ShortSegmentSeconds float64  `mapstructure:"short_segment_seconds"`
	ShortSegmentRatio   float64  `mapstructure:"short_segment_ratio"`
	WarnUniqueImages    int      `mapstructure:"warn_unique_images"`
	OptimizeBeforeSave  bool     `mapstructure:"optimize_before_save"`
}

// ToRules 转换为校验规则
func (c TimelineConfig) ToRules() timeline.Rules {
	return timeline.Rules{
		MaxEpisodeDuration:   c.MaxEpisodeSeconds,
		MinSegments:          c.MinSegments,
		MaxSegments:          c.MaxSegments,
		MinSegmentDuration:   c.MinSegmentSeconds,
		MaxSegmentDuration:   c.MaxSegmentSeconds,
		AllowedExtensions:    c.AllowedExtensions,
		TrustedDomains:       c.TrustedDomains,
		MinCoveragePercent:   c.MinCoveragePercent,
		MaxUniqueImages:      c.MaxUniqueImages,
		MaxGap:               c.MaxGapSeconds,
		ShortSegmentDuration: c.ShortSegmentSeconds,
		ShortSegmentRatio:    c.ShortSegmentRatio,
		WarnUniqueImages:     c.WarnUniqueImages,
	}
}

// AffiliateConfig 推广合作配置
type AffiliateConfig struct {
	TierRates                map[string]float64 `mapstructure:"tier_rates"`
	InfluencerMacroFollowers int                `mapstructure:"influencer_macro_followers"`
	InfluencerMidFollowers   int                `mapstructure:"influencer_mid_followers"`
	CodePrefixes             map[string]string  `mapstructure:"code_prefixes"`
	DefaultCodePrefix        string             `mapstructure:"default_code_prefix"`
	CodeLength               int                `mapstructure:"code_length"`
	Currency                 string             `mapstructure:"currency"`
}

// CacheConfig 读缓存配置
type CacheConfig struct {
	TimelineTTLSeconds int `mapstructure:"timeline_ttl_seconds"`
}

// WorkerConfig 后台任务配置
type WorkerConfig struct {
	CouponExpirySpec string `mapstructure:"coupon_expiry_spec"` // cron 表达式
}

// RateLimitRuleConfig 单条限流规则
type RateLimitRuleConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// RateLimitConfig 接口限流配置（依赖 Redis，未启用时不限流）
type RateLimitConfig struct {
	Coupon RateLimitRuleConfig `mapstructure:"coupon"` // 优惠码试算/核销，按 IP + code 计数
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults(viper.GetViper())

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "sarvcast.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/sarvcast.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("database.slow_query_ms", 200)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sc")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  5,
		"critical": 10,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)

	rules := timeline.DefaultRules()
	v.SetDefault("timeline.max_episode_seconds", rules.MaxEpisodeDuration)
	v.SetDefault("timeline.min_segments", rules.MinSegments)
	v.SetDefault("timeline.max_segments", rules.MaxSegments)
	v.SetDefault("timeline.min_segment_seconds", rules.MinSegmentDuration)
	v.SetDefault("timeline.max_segment_seconds", rules.MaxSegmentDuration)
	v.SetDefault("timeline.allowed_extensions", rules.AllowedExtensions)
	v.SetDefault("timeline.trusted_domains", rules.TrustedDomains)
	v.SetDefault("timeline.min_coverage_percent", rules.MinCoveragePercent)
	v.SetDefault("timeline.max_unique_images", rules.MaxUniqueImages)
	v.SetDefault("timeline.max_gap_seconds", rules.MaxGap)
	v.SetDefault("timeline.short_segment_seconds", rules.ShortSegmentDuration)
	v.SetDefault("timeline.short_segment_ratio", rules.ShortSegmentRatio)
	v.SetDefault("timeline.warn_unique_images", rules.WarnUniqueImages)
	v.SetDefault("timeline.optimize_before_save", false)

	v.SetDefault("affiliate.tier_rates", map[string]float64{
		"micro":      10,
		"mid":        15,
		"macro":      20,
		"enterprise": 25,
	})
	v.SetDefault("affiliate.influencer_macro_followers", 100000)
	v.SetDefault("affiliate.influencer_mid_followers", 10000)
	v.SetDefault("affiliate.code_prefixes", map[string]string{
		"influencer": "INF",
		"teacher":    "TCH",
		"partner":    "PRT",
	})
	v.SetDefault("affiliate.default_code_prefix", "PROMO")
	v.SetDefault("affiliate.code_length", 6)
	v.SetDefault("affiliate.currency", "IRR")

	v.SetDefault("cache.timeline_ttl_seconds", 3600)
	v.SetDefault("worker.coupon_expiry_spec", "@every 1h")
	v.SetDefault("rate_limit.coupon.window_seconds", 60)
	v.SetDefault("rate_limit.coupon.max_requests", 20)
}
