package models

import (
	"time"

	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/money"
)

// Obligation 待结算义务（推广佣金或用户退款）
type Obligation struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                          // 主键
	Kind              string     `gorm:"type:varchar(20);not null;index" json:"kind"`                   // 义务类型
	AffiliateID       *uint      `gorm:"index" json:"affiliate_id,omitempty"`                           // 推广者（佣金）
	UserID            *uint      `gorm:"index" json:"user_id,omitempty"`                                // 用户（退款/被推荐人）
	SourceOperationID string     `gorm:"type:varchar(100);not null;uniqueIndex" json:"source_operation_id"` // 来源操作（幂等键）
	ProfitMinor       int64      `gorm:"not null;default:0" json:"profit_minor"`                        // 利润（最小单位）
	RateApplied       Percent    `gorm:"type:decimal(10,4);not null;default:0" json:"rate_applied"`     // 适用费率
	AmountMinor       int64      `gorm:"not null" json:"amount_minor"`                                  // 应付金额（最小单位）
	Currency          string     `gorm:"type:varchar(8);not null;index" json:"currency"`                // 币种
	Reason            string     `gorm:"type:varchar(500);not null;default:''" json:"reason"`           // 原因
	Status            string     `gorm:"type:varchar(20);not null;index" json:"status"`                 // 状态
	Version           int64      `gorm:"not null;default:0" json:"version"`                             // 乐观锁版本
	DecidedBy         string     `gorm:"type:varchar(100);not null;default:''" json:"decided_by"`       // 审核人
	DecidedAt         *time.Time `json:"decided_at,omitempty"`                                          // 审核时间
	SettledAt         *time.Time `json:"settled_at,omitempty"`                                          // 结算时间
	ClosedAt          *time.Time `gorm:"index" json:"closed_at,omitempty"`                              // 进入终态时间
	SettlementTxID    string     `gorm:"type:varchar(36);not null;default:''" json:"settlement_tx_id"`  // 结算交易号
	OperationClosedAt *time.Time `json:"operation_closed_at,omitempty"`                                 // 来源操作平仓时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time  `gorm:"index" json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (Obligation) TableName() string {
	return "obligations"
}

// Owed 返回应付金额
func (o Obligation) Owed() money.Money {
	return money.New(o.AmountMinor, money.Currency(o.Currency))
}

// Profit 返回利润金额
func (o Obligation) Profit() money.Money {
	return money.New(o.ProfitMinor, money.Currency(o.Currency))
}

// IsTerminal 是否已进入终态
func (o Obligation) IsTerminal() bool {
	return o.Status == constants.ObligationStatusPaid || o.Status == constants.ObligationStatusRejected
}
