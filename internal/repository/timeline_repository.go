package repository

import (
	"strings"

	"github.com/sarvcast-next/internal/models"

	"gorm.io/gorm"
)

// TimelineRepository 图片时间轴数据访问接口
type TimelineRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormTimelineRepository
	ListByEpisode(episodeID uint, filter TimelineSegmentFilter) ([]models.TimelineSegment, error)
	ReplaceForEpisode(episodeID uint, segments []models.TimelineSegment) error
	DeleteByEpisode(episodeID uint) (int64, error)
}

// GormTimelineRepository GORM 实现
type GormTimelineRepository struct {
	db *gorm.DB
}

// NewTimelineRepository 创建时间轴仓库
func NewTimelineRepository(db *gorm.DB) *GormTimelineRepository {
	return &GormTimelineRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTimelineRepository) WithTx(tx *gorm.DB) *GormTimelineRepository {
	if tx == nil {
		return r
	}
	return &GormTimelineRepository{db: tx}
}

// Transaction 执行事务
func (r *GormTimelineRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// ListByEpisode 按排序号查询单集的时间轴片段
func (r *GormTimelineRepository) ListByEpisode(episodeID uint, filter TimelineSegmentFilter) ([]models.TimelineSegment, error) {
	query := r.db.Model(&models.TimelineSegment{}).Where("episode_id = ?", episodeID)
	if filter.KeyFramesOnly {
		query = query.Where("is_key_frame = ?", true)
	}
	if transition := strings.TrimSpace(filter.TransitionType); transition != "" {
		query = query.Where("transition_type = ?", transition)
	}
	if filter.VoiceActorID != nil {
		query = query.Where("voice_actor_id = ?", *filter.VoiceActorID)
	}

	var segments []models.TimelineSegment
	if err := query.Order("segment_order asc").Order("id asc").Find(&segments).Error; err != nil {
		return nil, err
	}
	return segments, nil
}

// ReplaceForEpisode 整体替换单集的时间轴（先删后插，需在事务中调用）
func (r *GormTimelineRepository) ReplaceForEpisode(episodeID uint, segments []models.TimelineSegment) error {
	if _, err := r.DeleteByEpisode(episodeID); err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	for i := range segments {
		segments[i].ID = 0
		segments[i].EpisodeID = episodeID
	}
	return r.db.CreateInBatches(segments, 100).Error
}

// DeleteByEpisode 删除单集的全部片段
func (r *GormTimelineRepository) DeleteByEpisode(episodeID uint) (int64, error) {
	result := r.db.Where("episode_id = ?", episodeID).Delete(&models.TimelineSegment{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
