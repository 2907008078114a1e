package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/signaldesk-ledger/internal/models"

	"gorm.io/gorm"
)

// AffiliateRepository 推广者数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetByID(id uint) (*models.Affiliate, error)
	GetByIDForUpdate(id uint) (*models.Affiliate, error)
	GetByUserID(userID uint) (*models.Affiliate, error)
	GetByCode(code string) (*models.Affiliate, error)
	Create(affiliate *models.Affiliate) error
	UpdateFields(id uint, updates map[string]interface{}) error
	List(filter AffiliateListFilter) ([]models.Affiliate, int64, error)

	CreateRateChange(change *models.AffiliateRateChange) error
	ListRateChanges(affiliateID uint) ([]models.AffiliateRateChange, error)
	GetRateChangeAt(affiliateID uint, at time.Time) (*models.AffiliateRateChange, error)
}

// GormAffiliateRepository GORM 推广者仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广者仓储
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

// GetByID 按 ID 获取推广者
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Affiliate](r.db, id)
}

// GetByIDForUpdate 按 ID 加锁获取推广者
func (r *GormAffiliateRepository) GetByIDForUpdate(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	query := forUpdate(r.db)
	return firstOrNil[models.Affiliate](query, id)
}

// GetByUserID 按用户获取推广者
func (r *GormAffiliateRepository) GetByUserID(userID uint) (*models.Affiliate, error) {
	if userID == 0 {
		return nil, nil
	}
	return firstOrNil[models.Affiliate](r.db.Where("user_id = ?", userID))
}

// GetByCode 按推广码获取推广者
func (r *GormAffiliateRepository) GetByCode(code string) (*models.Affiliate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	return firstOrNil[models.Affiliate](r.db.Where("affiliate_code = ?", code))
}

// Create 创建推广者
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// UpdateFields 更新推广者字段，推广码不可修改
func (r *GormAffiliateRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["affiliate_code"]; ok {
		return errors.New("affiliate code is immutable")
	}
	return r.db.Model(&models.Affiliate{}).Where("id = ?", id).Updates(updates).Error
}

// List 查询推广者列表
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("affiliate_code = ?", strings.ToUpper(code))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.IsVip != nil {
		query = query.Where("is_vip = ?", *filter.IsVip)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	rows := make([]models.Affiliate, 0)
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CreateRateChange 写入费率变更
func (r *GormAffiliateRepository) CreateRateChange(change *models.AffiliateRateChange) error {
	return r.db.Create(change).Error
}

// ListRateChanges 按生效日期升序返回费率历史
func (r *GormAffiliateRepository) ListRateChanges(affiliateID uint) ([]models.AffiliateRateChange, error) {
	rows := make([]models.AffiliateRateChange, 0)
	if affiliateID == 0 {
		return rows, nil
	}
	if err := r.db.Where("affiliate_id = ?", affiliateID).
		Order("effective_date asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetRateChangeAt 返回在指定时间生效的费率记录
func (r *GormAffiliateRepository) GetRateChangeAt(affiliateID uint, at time.Time) (*models.AffiliateRateChange, error) {
	if affiliateID == 0 {
		return nil, nil
	}
	var change models.AffiliateRateChange
	if err := r.db.Where("affiliate_id = ? AND effective_date <= ?", affiliateID, at).
		Order("effective_date desc, id desc").
		First(&change).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &change, nil
}
