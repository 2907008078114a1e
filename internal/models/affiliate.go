package models

import (
	"time"
)

// Affiliate 推广者档案
type Affiliate struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                         // 主键
	UserID         uint      `gorm:"not null;uniqueIndex" json:"user_id"`                          // 用户ID
	AffiliateCode  string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"affiliate_code"`  // 推广码（创建后不可变）
	Status         string    `gorm:"type:varchar(20);not null;index" json:"status"`                // 状态
	IsVip          bool      `gorm:"not null;default:false;index" json:"is_vip"`                   // 是否 VIP
	CommissionRate Percent   `gorm:"type:decimal(10,4);not null;default:0" json:"commission_rate"` // 当前生效费率
	JoinDate       time.Time `gorm:"not null" json:"join_date"`                                    // 加入日期
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time `gorm:"index" json:"updated_at"`                                      // 更新时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}

// AffiliateRateChange 推广费率变更历史
type AffiliateRateChange struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                                         // 主键
	AffiliateID   uint      `gorm:"not null;uniqueIndex:idx_affiliate_rate_effective" json:"affiliate_id"`        // 推广者
	EffectiveDate time.Time `gorm:"not null;uniqueIndex:idx_affiliate_rate_effective" json:"effective_date"`      // 生效日期
	Rate          Percent   `gorm:"type:decimal(10,4);not null" json:"rate"`                                      // 费率
	IsVip         bool      `gorm:"not null;default:false" json:"is_vip"`                                         // 变更时是否 VIP
	Reason        string    `gorm:"type:varchar(255);not null;default:''" json:"reason"`                          // 变更原因
	ChangedBy     string    `gorm:"type:varchar(100);not null;default:''" json:"changed_by"`                      // 操作人
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                                      // 创建时间
}

// TableName 指定表名
func (AffiliateRateChange) TableName() string {
	return "affiliate_rate_changes"
}
