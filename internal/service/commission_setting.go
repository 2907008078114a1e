package service

import (
	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/logger"

	"github.com/shopspring/decimal"
)

// CommissionRates 默认费率与 VIP 费率（百分比）
type CommissionRates struct {
	Default decimal.Decimal
	Vip     decimal.Decimal
}

// CommissionRatesFromConfig 从配置读取费率，解析失败时退回 0
func CommissionRatesFromConfig(cfg config.CommissionConfig) CommissionRates {
	def, vip, err := cfg.Rates()
	if err != nil {
		logger.Warnw("commission_rates_parse_failed", "error", err)
		return CommissionRates{}
	}
	return CommissionRates{Default: def, Vip: vip}
}

// For 按 VIP 标记返回费率
func (r CommissionRates) For(isVip bool) decimal.Decimal {
	if isVip {
		return r.Vip
	}
	return r.Default
}
