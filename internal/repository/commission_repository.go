package repository

import (
	"errors"
	"strings"

	"github.com/sarvcast-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金与佣金打款数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	CreateCommission(commission *models.Commission) error
	GetCommissionBySubscription(subscriptionID uint) (*models.Commission, error)
	ListCommissions(filter CommissionListFilter) ([]models.Commission, int64, error)
	AggregateCommissionsByPartner(partnerID uint) ([]CommissionAggregate, error)

	CreatePayment(payment *models.CommissionPayment) error
	GetPaymentByID(id uint) (*models.CommissionPayment, error)
	GetPaymentByIDForUpdate(id uint) (*models.CommissionPayment, error)
	ListPayments(filter CommissionPaymentListFilter) ([]models.CommissionPayment, int64, error)
	ListPaymentIDsByStatusForUpdate(ids []uint, status string) ([]uint, error)
	TransitionPayments(ids []uint, fromStatuses []string, updates map[string]interface{}) (int64, error)
	AggregatePayments() ([]CommissionPaymentAggregate, error)
}

// CommissionAggregate 按状态汇总的订阅佣金
type CommissionAggregate struct {
	Status string          `gorm:"column:status"`
	Count  int64           `gorm:"column:total_count"`
	Total  decimal.Decimal `gorm:"column:total_amount"`
}

// CommissionPaymentAggregate 按状态与类型汇总的佣金打款
type CommissionPaymentAggregate struct {
	Status      string          `gorm:"column:status"`
	PaymentType string          `gorm:"column:payment_type"`
	Count       int64           `gorm:"column:total_count"`
	Total       decimal.Decimal `gorm:"column:total_amount"`
}

// GormCommissionRepository GORM 实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateCommission 创建订阅佣金
func (r *GormCommissionRepository) CreateCommission(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// GetCommissionBySubscription 按订阅查询佣金
func (r *GormCommissionRepository) GetCommissionBySubscription(subscriptionID uint) (*models.Commission, error) {
	if subscriptionID == 0 {
		return nil, nil
	}
	var row models.Commission
	if err := r.db.Where("subscription_id = ?", subscriptionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListCommissions 查询订阅佣金
func (r *GormCommissionRepository) ListCommissions(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{})
	if filter.PartnerID != 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, filter.Page, filter.PageSize)

	var rows []models.Commission
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AggregateCommissionsByPartner 汇总合作伙伴的订阅佣金
func (r *GormCommissionRepository) AggregateCommissionsByPartner(partnerID uint) ([]CommissionAggregate, error) {
	var rows []CommissionAggregate
	if err := r.db.Model(&models.Commission{}).
		Select("status, COUNT(*) AS total_count, COALESCE(SUM(amount), 0) AS total_amount").
		Where("partner_id = ?", partnerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreatePayment 创建佣金打款记录
func (r *GormCommissionRepository) CreatePayment(payment *models.CommissionPayment) error {
	return r.db.Create(payment).Error
}

// GetPaymentByID 按ID获取佣金打款
func (r *GormCommissionRepository) GetPaymentByID(id uint) (*models.CommissionPayment, error) {
	return r.getPayment(r.db, id)
}

// GetPaymentByIDForUpdate 按ID锁定查询佣金打款
func (r *GormCommissionRepository) GetPaymentByIDForUpdate(id uint) (*models.CommissionPayment, error) {
	return r.getPayment(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCommissionRepository) getPayment(db *gorm.DB, id uint) (*models.CommissionPayment, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.CommissionPayment
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListPayments 查询佣金打款列表
func (r *GormCommissionRepository) ListPayments(filter CommissionPaymentListFilter) ([]models.CommissionPayment, int64, error) {
	query := r.db.Model(&models.CommissionPayment{})
	if filter.PartnerID != 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentType := strings.TrimSpace(filter.PaymentType); paymentType != "" {
		query = query.Where("payment_type = ?", paymentType)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = paginate(query, filter.Page, filter.PageSize)

	var rows []models.CommissionPayment
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListPaymentIDsByStatusForUpdate 锁定并返回指定ID中处于某状态的记录ID
func (r *GormCommissionRepository) ListPaymentIDsByStatusForUpdate(ids []uint, status string) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	var rows []uint
	if err := r.db.Model(&models.CommissionPayment{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND status = ?", ids, status).
		Order("id asc").
		Pluck("id", &rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TransitionPayments 仅当当前状态属于 fromStatuses 时更新，返回实际更新行数
func (r *GormCommissionRepository) TransitionPayments(ids []uint, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	if len(ids) == 0 || len(fromStatuses) == 0 || len(updates) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CommissionPayment{}).
		Where("id IN ? AND status IN ?", ids, fromStatuses).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// AggregatePayments 按状态与类型汇总佣金打款
func (r *GormCommissionRepository) AggregatePayments() ([]CommissionPaymentAggregate, error) {
	var rows []CommissionPaymentAggregate
	if err := r.db.Model(&models.CommissionPayment{}).
		Select("status, payment_type, COUNT(*) AS total_count, COALESCE(SUM(amount), 0) AS total_amount").
		Group("status, payment_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
