package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository 优惠码数据访问接口
type CouponRepository interface {
	GetByID(id uint) (*models.CouponCode, error)
	GetByCode(code string) (*models.CouponCode, error)
	GetByCodeForUpdate(code string) (*models.CouponCode, error)
	Create(coupon *models.CouponCode) error
	List(filter CouponListFilter) ([]models.CouponCode, int64, error)
	IncrementUsageCount(id uint, delta int) error
	Deactivate(id uint, updatedAt time.Time) (int64, error)
	DeactivateExpired(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠码仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetByID 根据ID获取优惠码
func (r *GormCouponRepository) GetByID(id uint) (*models.CouponCode, error) {
	var coupon models.CouponCode
	if err := r.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByCode 根据优惠码获取
func (r *GormCouponRepository) GetByCode(code string) (*models.CouponCode, error) {
	return r.getByCode(r.db, code)
}

// GetByCodeForUpdate 加锁读取优惠码（兑换事务内使用）
func (r *GormCouponRepository) GetByCodeForUpdate(code string) (*models.CouponCode, error) {
	return r.getByCode(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), code)
}

func (r *GormCouponRepository) getByCode(db *gorm.DB, code string) (*models.CouponCode, error) {
	var coupon models.CouponCode
	if err := db.Where("code = ?", strings.TrimSpace(code)).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// Create 创建优惠码
func (r *GormCouponRepository) Create(coupon *models.CouponCode) error {
	return r.db.Create(coupon).Error
}

// List 获取优惠码列表
func (r *GormCouponRepository) List(filter CouponListFilter) ([]models.CouponCode, int64, error) {
	var coupons []models.CouponCode
	query := r.db.Model(&models.CouponCode{})

	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("code = ?", code)
	}
	if filter.PartnerID > 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if partnerType := strings.TrimSpace(filter.PartnerType); partnerType != "" {
		query = query.Where("partner_type = ?", partnerType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, filter.Page, filter.PageSize)

	if err := query.Order("id desc").Find(&coupons).Error; err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// IncrementUsageCount 增加使用次数
func (r *GormCouponRepository) IncrementUsageCount(id uint, delta int) error {
	if delta == 0 {
		delta = 1
	}
	return r.db.Model(&models.CouponCode{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", delta)).Error
}

// Deactivate 停用优惠码
func (r *GormCouponRepository) Deactivate(id uint, updatedAt time.Time) (int64, error) {
	result := r.db.Model(&models.CouponCode{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": updatedAt,
		})
	return result.RowsAffected, result.Error
}

// DeactivateExpired 停用已过期的优惠码
func (r *GormCouponRepository) DeactivateExpired(now time.Time) (int64, error) {
	result := r.db.Model(&models.CouponCode{}).
		Where("is_active = ? AND ends_at IS NOT NULL AND ends_at < ?", true, now).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
