package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponCode 优惠码（只做停用，不物理删除）
type CouponCode struct {
	ID              uint            `gorm:"primarykey" json:"id"`                                            // 主键
	Code            string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`               // 优惠码
	PartnerID       *uint           `gorm:"index" json:"partner_id,omitempty"`                               // 关联合作伙伴
	PartnerType     string          `gorm:"type:varchar(20);index" json:"partner_type"`                      // 伙伴类型
	DiscountType    string          `gorm:"type:varchar(20);not null" json:"discount_type"`                  // 优惠类型（percentage/fixed）
	DiscountValue   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"discount_value"`               // 优惠数值（百分比或金额）
	MaxDiscount     Money           `gorm:"type:decimal(20,0);not null;default:0" json:"max_discount"`       // 最大优惠金额（0 表示不限制）
	MinimumAmount   Money           `gorm:"type:decimal(20,0);not null;default:0" json:"minimum_amount"`     // 使用门槛（0 表示无门槛）
	CommissionType  string          `gorm:"type:varchar(20);not null;default:'none'" json:"commission_type"` // 佣金规则（none/percentage/fixed）
	CommissionValue decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"commission_value"`   // 佣金数值
	UsageLimit      int             `gorm:"not null;default:0" json:"usage_limit"`                           // 总使用上限（0 表示不限制）
	UsageCount      int             `gorm:"not null;default:0" json:"usage_count"`                           // 已使用次数
	IsActive        bool            `gorm:"not null" json:"is_active"`                                       // 是否启用
	StartsAt        *time.Time      `gorm:"index" json:"starts_at"`                                          // 生效时间
	EndsAt          *time.Time      `gorm:"index" json:"ends_at"`                                            // 失效时间
	Description     string          `gorm:"type:varchar(255)" json:"description"`                            // 备注
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt       time.Time       `gorm:"index" json:"updated_at"`                                         // 更新时间
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`                                                  // 软删除时间

	Partner *AffiliatePartner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"` // 合作伙伴
}

// TableName 指定表名
func (CouponCode) TableName() string {
	return "coupon_codes"
}

// IsWithinWindow 判断时间点是否在有效期内
func (c *CouponCode) IsWithinWindow(now time.Time) bool {
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}

// HasRemainingUsage 是否还有剩余使用次数
func (c *CouponCode) HasRemainingUsage() bool {
	return c.UsageLimit <= 0 || c.UsageCount < c.UsageLimit
}
