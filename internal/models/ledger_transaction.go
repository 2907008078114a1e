package models

import (
	"time"

	"github.com/signaldesk-ledger/internal/money"
)

// LedgerTransaction 账本交易（只追加，不更新不删除）
type LedgerTransaction struct {
	ID                     uint      `gorm:"primarykey" json:"id"`                                    // 主键
	TxID                   string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"tx_id"`      // 交易号
	Type                   string    `gorm:"type:varchar(32);not null;index" json:"type"`             // 交易类型
	AmountMinor            int64     `gorm:"not null" json:"amount_minor"`                            // 金额（最小单位，恒为正）
	Currency               string    `gorm:"type:varchar(8);not null;index" json:"currency"`          // 币种
	Description            string    `gorm:"type:varchar(500);not null;default:''" json:"description"` // 描述
	RelatedUserID          *uint     `gorm:"index" json:"related_user_id,omitempty"`                  // 关联用户
	RelatedAffiliateID     *uint     `gorm:"index" json:"related_affiliate_id,omitempty"`             // 关联推广者
	RelatedOperationID     string    `gorm:"type:varchar(64);index" json:"related_operation_id,omitempty"` // 关联交易操作
	SettlementObligationID *uint     `gorm:"uniqueIndex" json:"settlement_obligation_id,omitempty"`   // 结算的义务（每笔义务至多一次）
	ReserveObligationID    *uint     `gorm:"uniqueIndex" json:"reserve_obligation_id,omitempty"`      // 预留对应的义务
	PostedBy               string    `gorm:"type:varchar(100);not null;default:''" json:"posted_by"`  // 记账人
	CreatedAt              time.Time `gorm:"index" json:"created_at"`                                 // 记账时间
}

// TableName 指定表名
func (LedgerTransaction) TableName() string {
	return "ledger_transactions"
}

// Amount 返回带币种金额
func (t LedgerTransaction) Amount() money.Money {
	return money.New(t.AmountMinor, money.Currency(t.Currency))
}
