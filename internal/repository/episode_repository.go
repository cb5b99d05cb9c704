package repository

import (
	"errors"
	"time"

	"github.com/sarvcast-next/internal/models"

	"gorm.io/gorm"
)

// EpisodeRepository 单集数据访问接口
type EpisodeRepository interface {
	GetByID(id uint) (*models.Episode, error)
	Create(episode *models.Episode) error
	SetUsesImageTimeline(id uint, enabled bool, updatedAt time.Time) error
	WithTx(tx *gorm.DB) *GormEpisodeRepository
}

// GormEpisodeRepository GORM 实现
type GormEpisodeRepository struct {
	db *gorm.DB
}

// NewEpisodeRepository 创建单集仓库
func NewEpisodeRepository(db *gorm.DB) *GormEpisodeRepository {
	return &GormEpisodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormEpisodeRepository) WithTx(tx *gorm.DB) *GormEpisodeRepository {
	if tx == nil {
		return r
	}
	return &GormEpisodeRepository{db: tx}
}

// GetByID 根据ID获取单集
func (r *GormEpisodeRepository) GetByID(id uint) (*models.Episode, error) {
	if id == 0 {
		return nil, nil
	}
	var episode models.Episode
	if err := r.db.First(&episode, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &episode, nil
}

// Create 创建单集
func (r *GormEpisodeRepository) Create(episode *models.Episode) error {
	return r.db.Create(episode).Error
}

// SetUsesImageTimeline 更新图片时间轴开关
func (r *GormEpisodeRepository) SetUsesImageTimeline(id uint, enabled bool, updatedAt time.Time) error {
	return r.db.Model(&models.Episode{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"uses_image_timeline": enabled,
			"updated_at":          updatedAt,
		}).Error
}
