package models

import (
	"fmt"
	"strings"
	"time"

	applog "github.com/sarvcast-next/internal/logger"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 进程级数据库连接，由 InitDB 设置
var DB *gorm.DB

// Options 数据库连接参数
type Options struct {
	Driver string
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowThreshold   time.Duration
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver: %s", driver)
}

// Open 建立连接并应用连接池参数，SQL 日志写入应用日志
func Open(opts Options) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(applog.StdLogger(), gormlogger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
	return db, nil
}

// InitDB 打开连接并保存到 DB
func InitDB(opts Options) error {
	db, err := Open(opts)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// AutoMigrate 迁移 DB 上的全部表
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate 对指定连接执行迁移
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Episode{},
		&TimelineSegment{},
		&AffiliatePartner{},
		&CouponCode{},
		&CouponUsage{},
		&Subscription{},
		&Commission{},
		&CommissionPayment{},
	)
}
