package repository

import "time"

// LedgerScopeFilter 账本作用域过滤（零值表示平台全局）
type LedgerScopeFilter struct {
	UserID      uint
	AffiliateID uint
}

// LedgerSumFilter 余额聚合过滤条件
type LedgerSumFilter struct {
	Scope    LedgerScopeFilter
	Currency string
	AsOf     *time.Time
}

// MonthlyFlowFilter 月度流水过滤条件
type MonthlyFlowFilter struct {
	Scope    LedgerScopeFilter
	Currency string
	From     *time.Time
	To       *time.Time
}

// TransactionListFilter 交易列表过滤条件
type TransactionListFilter struct {
	Page     int
	PageSize int
	Scope    LedgerScopeFilter
	Type     string
	Currency string
}

// TypeSumRow 按类型与币种汇总的金额
type TypeSumRow struct {
	Type     string `gorm:"column:type"`
	Currency string `gorm:"column:currency"`
	Total    int64  `gorm:"column:total"`
}

// CurrencySumRow 按币种汇总的金额
type CurrencySumRow struct {
	Currency string `gorm:"column:currency"`
	Total    int64  `gorm:"column:total"`
	Count    int64  `gorm:"column:count"`
}

// MonthlyTypeSumRow 按月、币种与类型汇总的金额
type MonthlyTypeSumRow struct {
	Month    string `gorm:"column:month"`
	Currency string `gorm:"column:currency"`
	Type     string `gorm:"column:type"`
	Total    int64  `gorm:"column:total"`
}

// ObligationListFilter 义务列表过滤条件
type ObligationListFilter struct {
	Page        int
	PageSize    int
	Kind        string
	Status      string
	AffiliateID uint
	UserID      uint
	Currency    string
}

// ObligationSumFilter 义务金额汇总条件
type ObligationSumFilter struct {
	Kind        string
	Statuses    []string
	AffiliateID uint
}

// AffiliateListFilter 推广者列表过滤条件
type AffiliateListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Code     string
	Status   string
	IsVip    *bool
}

// AuditLogListFilter 审计日志过滤条件
type AuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	Action          string
	TargetType      string
	TargetID        string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
