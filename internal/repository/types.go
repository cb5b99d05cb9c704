package repository

import (
	"time"

	"gorm.io/gorm"
)

// TimelineSegmentFilter 时间轴片段查询条件
type TimelineSegmentFilter struct {
	KeyFramesOnly  bool
	TransitionType string
	VoiceActorID   *uint
}

// CouponListFilter 优惠码列表筛选
type CouponListFilter struct {
	Code        string
	PartnerID   uint
	PartnerType string
	IsActive    *bool
	Page        int
	PageSize    int
}

// CouponUsageListFilter 查询优惠码使用记录列表的过滤条件
type CouponUsageListFilter struct {
	Page         int
	PageSize     int
	CouponCodeID uint
	UserID       uint
}

// AffiliatePartnerListFilter 合作伙伴列表过滤条件
type AffiliatePartnerListFilter struct {
	Page     int
	PageSize int
	Type     string
	Tier     string
	Status   string
	Keyword  string
}

// CommissionListFilter 订阅佣金列表过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	PartnerID   uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionPaymentListFilter 佣金打款列表过滤条件
type CommissionPaymentListFilter struct {
	Page        int
	PageSize    int
	PartnerID   uint
	Status      string
	PaymentType string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

const maxPageSize = 100

// paginate 应用分页；pageSize 为 0 表示不分页，超出上限按上限截断
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
