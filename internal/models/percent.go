package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// percentScale 费率保留小数位
const percentScale = 4

// Percent 百分比费率（2.5 表示 2.5%）
type Percent struct {
	decimal.Decimal
}

// NewPercent 从 decimal 创建费率
func NewPercent(value decimal.Decimal) Percent {
	return Percent{Decimal: value.Round(percentScale)}
}

// MustPercent 从字符串创建费率，格式错误时 panic（仅用于测试与常量）
func MustPercent(text string) Percent {
	return NewPercent(decimal.RequireFromString(text))
}

// InRange 是否位于 [0,100]
func (p Percent) InRange() bool {
	return !p.Decimal.IsNegative() && p.Decimal.LessThanOrEqual(decimal.NewFromInt(100))
}

// MarshalJSON 输出字符串，去除多余尾零
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Decimal.Round(percentScale).String())
}

// UnmarshalJSON 解析费率（字符串或数字）
func (p *Percent) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	p.Decimal = d.Round(percentScale)
	return nil
}

// Value 用于数据库写入
func (p Percent) Value() (driver.Value, error) {
	return p.Decimal.Round(percentScale).Value()
}

// Scan 用于数据库读取
func (p *Percent) Scan(value interface{}) error {
	if err := p.Decimal.Scan(value); err != nil {
		return err
	}
	p.Decimal = p.Decimal.Round(percentScale)
	return nil
}

func (p Percent) String() string {
	return p.Decimal.Round(percentScale).String() + "%"
}
