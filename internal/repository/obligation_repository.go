package repository

import (
	"errors"
	"strings"

	"github.com/signaldesk-ledger/internal/models"

	"gorm.io/gorm"
)

// ObligationRepository 待结算义务数据访问接口
type ObligationRepository interface {
	WithTx(tx *gorm.DB) ObligationRepository
	Create(obligation *models.Obligation) error
	GetByID(id uint) (*models.Obligation, error)
	GetByIDForUpdate(id uint) (*models.Obligation, error)
	GetBySourceOperationID(sourceOperationID string) (*models.Obligation, error)
	CompareAndSwap(id uint, fromStatus string, version int64, updates map[string]interface{}) (bool, error)
	List(filter ObligationListFilter) ([]models.Obligation, int64, error)
	SumByCurrency(filter ObligationSumFilter) ([]CurrencySumRow, error)
}

// GormObligationRepository GORM 义务仓储
type GormObligationRepository struct {
	db *gorm.DB
}

// NewObligationRepository 创建义务仓储
func NewObligationRepository(db *gorm.DB) *GormObligationRepository {
	return &GormObligationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormObligationRepository) WithTx(tx *gorm.DB) ObligationRepository {
	if tx == nil {
		return r
	}
	return &GormObligationRepository{db: tx}
}

// Create 创建义务
func (r *GormObligationRepository) Create(obligation *models.Obligation) error {
	if obligation == nil {
		return errors.New("obligation is nil")
	}
	return r.db.Create(obligation).Error
}

// GetByID 按 ID 获取义务
func (r *GormObligationRepository) GetByID(id uint) (*models.Obligation, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Obligation](r.db, id)
}

// GetByIDForUpdate 按 ID 加锁获取义务（sqlite 依赖写事务串行）
func (r *GormObligationRepository) GetByIDForUpdate(id uint) (*models.Obligation, error) {
	if id == 0 {
		return nil, nil
	}
	query := forUpdate(r.db)
	return firstOrNil[models.Obligation](query, id)
}

// GetBySourceOperationID 按来源操作获取义务
func (r *GormObligationRepository) GetBySourceOperationID(sourceOperationID string) (*models.Obligation, error) {
	sourceOperationID = strings.TrimSpace(sourceOperationID)
	if sourceOperationID == "" {
		return nil, nil
	}
	return firstOrNil[models.Obligation](r.db.Where("source_operation_id = ?", sourceOperationID))
}

// CompareAndSwap 仅当状态与版本均匹配时更新，并自增版本
func (r *GormObligationRepository) CompareAndSwap(id uint, fromStatus string, version int64, updates map[string]interface{}) (bool, error) {
	if id == 0 {
		return false, nil
	}
	values := make(map[string]interface{}, len(updates)+1)
	for key, value := range updates {
		values[key] = value
	}
	values["version"] = gorm.Expr("version + 1")

	result := r.db.Model(&models.Obligation{}).
		Where("id = ? AND status = ? AND version = ?", id, fromStatus, version).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// List 分页查询义务
func (r *GormObligationRepository) List(filter ObligationListFilter) ([]models.Obligation, int64, error) {
	query := r.db.Model(&models.Obligation{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Currency != "" {
		query = query.Where("currency = ?", filter.Currency)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	rows := make([]models.Obligation, 0)
	if err := query.Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumByCurrency 按币种汇总应付金额
func (r *GormObligationRepository) SumByCurrency(filter ObligationSumFilter) ([]CurrencySumRow, error) {
	query := r.db.Model(&models.Obligation{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	rows := make([]CurrencySumRow, 0)
	if err := query.
		Select("currency, COALESCE(SUM(amount_minor), 0) AS total, COUNT(*) AS count").
		Group("currency").
		Order("currency asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
