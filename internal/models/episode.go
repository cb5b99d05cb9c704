package models

import (
	"time"

	"gorm.io/gorm"
)

// Episode 节目单集（时间轴的归属方）
type Episode struct {
	ID                uint           `gorm:"primarykey" json:"id"`                              // 主键
	Title             string         `gorm:"type:varchar(255);not null" json:"title"`           // 标题
	Duration          int            `gorm:"not null" json:"duration"`                          // 音频时长（秒）
	UsesImageTimeline bool           `gorm:"not null;default:false" json:"uses_image_timeline"` // 是否启用图片时间轴
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间
}

// TableName 指定表名
func (Episode) TableName() string {
	return "episodes"
}
