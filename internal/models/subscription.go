package models

import "time"

// Subscription 用户订阅（结算流程只读取）
type Subscription struct {
	ID        uint       `gorm:"primarykey" json:"id"`                                // 主键
	UserID    uint       `gorm:"not null;index" json:"user_id"`                       // 用户ID
	PlanType  string     `gorm:"type:varchar(32);not null" json:"plan_type"`          // 套餐
	Amount    Money      `gorm:"type:decimal(20,0);not null;default:0" json:"amount"` // 实付金额
	Status    string     `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态
	StartDate time.Time  `json:"start_date"`                                          // 开始时间
	EndDate   *time.Time `json:"end_date,omitempty"`                                  // 结束时间
	CreatedAt time.Time  `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt time.Time  `json:"updated_at"`                                          // 更新时间
}

// TableName 指定表名
func (Subscription) TableName() string {
	return "subscriptions"
}
