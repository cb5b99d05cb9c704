package repository

import (
	"errors"

	"github.com/sarvcast-next/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository 订阅数据访问接口
type SubscriptionRepository interface {
	GetByID(id uint) (*models.Subscription, error)
	Create(subscription *models.Subscription) error
	WithTx(tx *gorm.DB) *GormSubscriptionRepository
}

// GormSubscriptionRepository GORM 实现
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository 创建订阅仓库
func NewSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSubscriptionRepository) WithTx(tx *gorm.DB) *GormSubscriptionRepository {
	if tx == nil {
		return r
	}
	return &GormSubscriptionRepository{db: tx}
}

// GetByID 根据ID获取订阅
func (r *GormSubscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	if id == 0 {
		return nil, nil
	}
	var subscription models.Subscription
	if err := r.db.First(&subscription, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

// Create 创建订阅
func (r *GormSubscriptionRepository) Create(subscription *models.Subscription) error {
	return r.db.Create(subscription).Error
}
