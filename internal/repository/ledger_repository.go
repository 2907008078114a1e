package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository 账本数据访问接口（只追加）
type LedgerRepository interface {
	WithTx(tx *gorm.DB) LedgerRepository
	Create(txn *models.LedgerTransaction) error
	GetByTxID(txID string) (*models.LedgerTransaction, error)
	GetBySettlementObligationID(obligationID uint) (*models.LedgerTransaction, error)
	CountBySettlementObligationID(obligationID uint) (int64, error)
	SumByType(filter LedgerSumFilter) ([]TypeSumRow, error)
	SumSettledReserves(filter LedgerSumFilter) ([]CurrencySumRow, error)
	SumMonthly(filter MonthlyFlowFilter) ([]MonthlyTypeSumRow, error)
	List(filter TransactionListFilter) ([]models.LedgerTransaction, int64, error)
}

// GormLedgerRepository GORM 账本仓储
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建账本仓储
func NewLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	if tx == nil {
		return r
	}
	return &GormLedgerRepository{db: tx}
}

// Create 追加交易
func (r *GormLedgerRepository) Create(txn *models.LedgerTransaction) error {
	if txn == nil {
		return errors.New("ledger transaction is nil")
	}
	return r.db.Create(txn).Error
}

// GetByTxID 按交易号获取
func (r *GormLedgerRepository) GetByTxID(txID string) (*models.LedgerTransaction, error) {
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return nil, nil
	}
	return firstOrNil[models.LedgerTransaction](r.db.Where("tx_id = ?", txID))
}

// GetBySettlementObligationID 获取义务的结算交易
func (r *GormLedgerRepository) GetBySettlementObligationID(obligationID uint) (*models.LedgerTransaction, error) {
	if obligationID == 0 {
		return nil, nil
	}
	return firstOrNil[models.LedgerTransaction](r.db.Where("settlement_obligation_id = ?", obligationID))
}

// CountBySettlementObligationID 统计义务的结算交易数量
func (r *GormLedgerRepository) CountBySettlementObligationID(obligationID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.LedgerTransaction{}).
		Where("settlement_obligation_id = ?", obligationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormLedgerRepository) sumBase(filter LedgerSumFilter) *gorm.DB {
	query := applyLedgerScope(r.db.Model(&models.LedgerTransaction{}), "ledger_transactions", filter.Scope)
	if filter.Currency != "" {
		query = query.Where("ledger_transactions.currency = ?", filter.Currency)
	}
	if filter.AsOf != nil {
		query = query.Where("ledger_transactions.created_at <= ?", *filter.AsOf)
	}
	return query
}

// SumByType 按类型与币种汇总金额
func (r *GormLedgerRepository) SumByType(filter LedgerSumFilter) ([]TypeSumRow, error) {
	rows := make([]TypeSumRow, 0)
	if err := r.sumBase(filter).
		Select("ledger_transactions.type AS type, ledger_transactions.currency AS currency, COALESCE(SUM(ledger_transactions.amount_minor), 0) AS total").
		Group("ledger_transactions.type, ledger_transactions.currency").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumSettledReserves 汇总已释放的预留（关联义务在截止时间前进入终态）
func (r *GormLedgerRepository) SumSettledReserves(filter LedgerSumFilter) ([]CurrencySumRow, error) {
	query := r.sumBase(filter).
		Joins("JOIN obligations ON obligations.id = ledger_transactions.reserve_obligation_id").
		Where("ledger_transactions.type = ?", constants.TxTypeReserva).
		Where("obligations.closed_at IS NOT NULL")
	if filter.AsOf != nil {
		query = query.Where("obligations.closed_at <= ?", *filter.AsOf)
	}
	rows := make([]CurrencySumRow, 0)
	if err := query.
		Select("ledger_transactions.currency AS currency, COALESCE(SUM(ledger_transactions.amount_minor), 0) AS total, COUNT(*) AS count").
		Group("ledger_transactions.currency").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormLedgerRepository) monthlyBase(filter MonthlyFlowFilter, column string) *gorm.DB {
	query := applyLedgerScope(r.db.Model(&models.LedgerTransaction{}), "ledger_transactions", filter.Scope)
	if filter.Currency != "" {
		query = query.Where("ledger_transactions.currency = ?", filter.Currency)
	}
	if filter.From != nil {
		query = query.Where(column+" >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where(column+" < ?", *filter.To)
	}
	return query
}

// SumMonthly 按月、币种、类型汇总
func (r *GormLedgerRepository) SumMonthly(filter MonthlyFlowFilter) ([]MonthlyTypeSumRow, error) {
	column := "ledger_transactions.created_at"
	month := monthExpr(r.db, column)
	rows := make([]MonthlyTypeSumRow, 0)
	if err := r.monthlyBase(filter, column).
		Select(fmt.Sprintf("%s AS month, ledger_transactions.currency AS currency, ledger_transactions.type AS type, COALESCE(SUM(ledger_transactions.amount_minor), 0) AS total", month)).
		Group(fmt.Sprintf("%s, ledger_transactions.currency, ledger_transactions.type", month)).
		Order("month asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List 按时间倒序查询交易
func (r *GormLedgerRepository) List(filter TransactionListFilter) ([]models.LedgerTransaction, int64, error) {
	query := applyLedgerScope(r.db.Model(&models.LedgerTransaction{}), "", filter.Scope)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Currency != "" {
		query = query.Where("currency = ?", filter.Currency)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	rows := make([]models.LedgerTransaction, 0)
	if err := query.Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
