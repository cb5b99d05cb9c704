package models

import "time"

// CouponUsage 优惠码使用记录（同一优惠码每个用户仅一条）
type CouponUsage struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                                        // 主键
	CouponCodeID     uint      `gorm:"not null;index;uniqueIndex:idx_coupon_usage_code_user" json:"coupon_code_id"` // 优惠码ID
	UserID           uint      `gorm:"not null;index;uniqueIndex:idx_coupon_usage_code_user" json:"user_id"`        // 用户ID
	SubscriptionID   *uint     `gorm:"index" json:"subscription_id,omitempty"`                                      // 订阅ID
	OriginalAmount   Money     `gorm:"type:decimal(20,0);not null;default:0" json:"original_amount"`                // 原价
	DiscountAmount   Money     `gorm:"type:decimal(20,0);not null;default:0" json:"discount_amount"`                // 优惠金额
	FinalAmount      Money     `gorm:"type:decimal(20,0);not null;default:0" json:"final_amount"`                   // 实付金额
	CommissionAmount Money     `gorm:"type:decimal(20,0);not null;default:0" json:"commission_amount"`              // 佣金金额
	Status           string    `gorm:"type:varchar(20);not null;index" json:"status"`                               // 状态
	UsedAt           time.Time `gorm:"index" json:"used_at"`                                                        // 使用时间
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                                                     // 创建时间
	UpdatedAt        time.Time `json:"updated_at"`                                                                  // 更新时间

	CouponCode *CouponCode `gorm:"foreignKey:CouponCodeID" json:"coupon_code,omitempty"` // 优惠码
}

// TableName 指定表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
