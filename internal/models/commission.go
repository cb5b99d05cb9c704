package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission 订阅佣金（每个订阅最多一条）
type Commission struct {
	ID             uint            `gorm:"primarykey" json:"id"`                                     // 主键
	PartnerID      uint            `gorm:"not null;index" json:"partner_id"`                         // 合作伙伴ID
	SubscriptionID uint            `gorm:"not null;uniqueIndex" json:"subscription_id"`              // 订阅ID
	UserID         uint            `gorm:"not null;index" json:"user_id"`                            // 订阅用户ID
	BaseAmount     Money           `gorm:"type:decimal(20,0);not null;default:0" json:"base_amount"` // 订阅金额
	CommissionRate decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"commission_rate"`       // 佣金比例
	Amount         Money           `gorm:"type:decimal(20,0);not null;default:0" json:"amount"`      // 佣金金额
	Status         string          `gorm:"type:varchar(20);not null;index" json:"status"`            // 状态
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt      time.Time       `json:"updated_at"`                                               // 更新时间

	Partner *AffiliatePartner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"` // 合作伙伴
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
