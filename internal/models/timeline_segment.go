package models

import "time"

// TimelineSegment 图片时间轴片段
// 保存时间轴时按单集整体替换，不做软删除。
type TimelineSegment struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                                        // 主键
	EpisodeID        uint      `gorm:"not null;index:idx_timeline_episode_order" json:"episode_id"`                 // 单集ID
	VoiceActorID     *uint     `gorm:"index" json:"voice_actor_id,omitempty"`                                       // 配音演员ID
	StartTime        float64   `gorm:"not null" json:"start_time"`                                                  // 开始秒数
	EndTime          float64   `gorm:"not null" json:"end_time"`                                                    // 结束秒数
	ImageURL         string    `gorm:"type:varchar(500);not null" json:"image_url"`                                 // 图片地址
	SceneDescription string    `gorm:"type:text" json:"scene_description"`                                          // 场景描述
	TransitionType   string    `gorm:"type:varchar(20);not null" json:"transition_type"`                            // 转场类型
	IsKeyFrame       bool      `gorm:"not null;default:false" json:"is_key_frame"`                                  // 是否关键帧
	SegmentOrder     int       `gorm:"column:segment_order;not null;index:idx_timeline_episode_order" json:"order"` // 排序（从 1 开始）
	CreatedAt        time.Time `json:"created_at"`                                                                  // 创建时间
	UpdatedAt        time.Time `json:"updated_at"`                                                                  // 更新时间
}

// TableName 指定表名
func (TimelineSegment) TableName() string {
	return "timeline_segments"
}
