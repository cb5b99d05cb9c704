package repository

import (
	"errors"

	"github.com/sarvcast-next/internal/models"

	"gorm.io/gorm"
)

// CouponUsageRepository 优惠码使用记录数据访问接口
type CouponUsageRepository interface {
	Create(usage *models.CouponUsage) error
	GetByCodeAndUser(couponCodeID, userID uint) (*models.CouponUsage, error)
	CountByCode(couponCodeID uint) (int64, error)
	List(filter CouponUsageListFilter) ([]models.CouponUsage, int64, error)
	WithTx(tx *gorm.DB) *GormCouponUsageRepository
}

// GormCouponUsageRepository GORM 实现
type GormCouponUsageRepository struct {
	db *gorm.DB
}

// NewCouponUsageRepository 创建优惠码使用记录仓库
func NewCouponUsageRepository(db *gorm.DB) *GormCouponUsageRepository {
	return &GormCouponUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponUsageRepository) WithTx(tx *gorm.DB) *GormCouponUsageRepository {
	if tx == nil {
		return r
	}
	return &GormCouponUsageRepository{db: tx}
}

// Create 创建使用记录
func (r *GormCouponUsageRepository) Create(usage *models.CouponUsage) error {
	return r.db.Create(usage).Error
}

// GetByCodeAndUser 查询用户对某优惠码的使用记录
func (r *GormCouponUsageRepository) GetByCodeAndUser(couponCodeID, userID uint) (*models.CouponUsage, error) {
	var usage models.CouponUsage
	if err := r.db.Where("coupon_code_id = ? AND user_id = ?", couponCodeID, userID).First(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

// CountByCode 统计优惠码使用次数
func (r *GormCouponUsageRepository) CountByCode(couponCodeID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_code_id = ?", couponCodeID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// List 获取使用记录
func (r *GormCouponUsageRepository) List(filter CouponUsageListFilter) ([]models.CouponUsage, int64, error) {
	query := r.db.Model(&models.CouponUsage{})
	if filter.CouponCodeID > 0 {
		query = query.Where("coupon_code_id = ?", filter.CouponCodeID)
	}
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, filter.Page, filter.PageSize)

	var usages []models.CouponUsage
	if err := query.Order("id desc").Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}
