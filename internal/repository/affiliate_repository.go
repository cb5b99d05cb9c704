package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广合作伙伴数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetPartnerByID(id uint) (*models.AffiliatePartner, error)
	GetPartnerByIDForUpdate(id uint) (*models.AffiliatePartner, error)
	CreatePartner(partner *models.AffiliatePartner) error
	UpdatePartnerFields(id uint, fromStatuses []string, updates map[string]interface{}) (int64, error)
	ListPartners(filter AffiliatePartnerListFilter) ([]models.AffiliatePartner, int64, error)
}

// GormAffiliateRepository GORM 推广合作伙伴仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广合作伙伴仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetPartnerByID 按ID获取合作伙伴
func (r *GormAffiliateRepository) GetPartnerByID(id uint) (*models.AffiliatePartner, error) {
	return r.getPartner(r.db, id)
}

// GetPartnerByIDForUpdate 按ID锁定查询合作伙伴
func (r *GormAffiliateRepository) GetPartnerByIDForUpdate(id uint) (*models.AffiliatePartner, error) {
	return r.getPartner(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormAffiliateRepository) getPartner(db *gorm.DB, id uint) (*models.AffiliatePartner, error) {
	if id == 0 {
		return nil, nil
	}
	var partner models.AffiliatePartner
	if err := db.First(&partner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// CreatePartner 创建合作伙伴
func (r *GormAffiliateRepository) CreatePartner(partner *models.AffiliatePartner) error {
	return r.db.Create(partner).Error
}

// UpdatePartnerFields 按状态条件更新合作伙伴，fromStatuses 为空时不限制状态
func (r *GormAffiliateRepository) UpdatePartnerFields(id uint, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	if id == 0 || len(updates) == 0 {
		return 0, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	query := r.db.Model(&models.AffiliatePartner{}).Where("id = ?", id)
	if len(fromStatuses) > 0 {
		query = query.Where("status IN ?", fromStatuses)
	}
	result := query.Updates(updates)
	return result.RowsAffected, result.Error
}

// ListPartners 查询合作伙伴列表
func (r *GormAffiliateRepository) ListPartners(filter AffiliatePartnerListFilter) ([]models.AffiliatePartner, int64, error) {
	query := r.db.Model(&models.AffiliatePartner{})
	if partnerType := strings.TrimSpace(filter.Type); partnerType != "" {
		query = query.Where("type = ?", partnerType)
	}
	if tier := strings.TrimSpace(filter.Tier); tier != "" {
		query = query.Where("tier = ?", tier)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		query = query.Where(partnerKeywordSearch.Expr(r.db, keyword))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, filter.Page, filter.PageSize)

	var rows []models.AffiliatePartner
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
