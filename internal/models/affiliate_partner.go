package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AffiliatePartner 推广合作伙伴
type AffiliatePartner struct {
	ID               uint            `gorm:"primarykey" json:"id"`                               // 主键
	Name             string          `gorm:"type:varchar(120);not null" json:"name"`             // 名称
	Email            string          `gorm:"type:varchar(255);index" json:"email"`               // 邮箱
	Phone            string          `gorm:"type:varchar(32)" json:"phone"`                      // 手机号
	Type             string          `gorm:"type:varchar(20);not null;index" json:"type"`        // 类型
	Tier             string          `gorm:"type:varchar(20);not null;index" json:"tier"`        // 等级
	Status           string          `gorm:"type:varchar(20);not null;index" json:"status"`      // 状态
	CommissionRate   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"commission_rate"` // 佣金比例（百分比）
	FollowerCount    int             `gorm:"not null;default:0" json:"follower_count"`           // 粉丝数
	VerifiedAt       *time.Time      `json:"verified_at,omitempty"`                              // 审核通过时间
	SuspendedAt      *time.Time      `json:"suspended_at,omitempty"`                             // 暂停时间
	SuspensionReason string          `gorm:"type:varchar(255)" json:"suspension_reason"`         // 暂停原因
	BankDetails      datatypes.JSON  `gorm:"type:json" json:"bank_details,omitempty"`            // 收款信息
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt        time.Time       `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (AffiliatePartner) TableName() string {
	return "affiliate_partners"
}
