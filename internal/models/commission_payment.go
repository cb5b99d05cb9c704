package models

import (
	"time"

	"gorm.io/datatypes"
)

// CommissionPayment 佣金打款记录
// 状态流转：pending -> processing -> paid，pending/processing -> failed。
type CommissionPayment struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                // 主键
	PartnerID        uint           `gorm:"not null;index" json:"partner_id"`                    // 合作伙伴ID
	CouponUsageID    *uint          `gorm:"uniqueIndex" json:"coupon_usage_id,omitempty"`        // 关联优惠码使用记录
	Amount           Money          `gorm:"type:decimal(20,0);not null;default:0" json:"amount"` // 金额
	Currency         string         `gorm:"type:varchar(10);not null" json:"currency"`           // 币种
	PaymentType      string         `gorm:"type:varchar(32);not null;index" json:"payment_type"` // 类型
	Status           string         `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态
	PaymentDetails   datatypes.JSON `gorm:"type:json" json:"payment_details,omitempty"`          // 收款信息快照
	ProcessedBy      *uint          `gorm:"index" json:"processed_by,omitempty"`                 // 处理人
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`                              // 开始处理时间
	PaidAt           *time.Time     `gorm:"index" json:"paid_at,omitempty"`                      // 打款时间
	PaymentReference string         `gorm:"type:varchar(120)" json:"payment_reference"`          // 打款流水号
	Notes            string         `gorm:"type:text" json:"notes"`                              // 备注（失败原因追加写入）
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间

	Partner *AffiliatePartner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"` // 合作伙伴
}

// TableName 指定表名
func (CommissionPayment) TableName() string {
	return "commission_payments"
}
