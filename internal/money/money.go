package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money 以最小单位整数表示的金额，始终携带币种
type Money struct {
	Amount   int64    // 最小单位金额
	Currency Currency // 币种
}

// New 以最小单位创建金额
func New(minor int64, cur Currency) Money {
	return Money{Amount: minor, Currency: cur}
}

// Zero 指定币种的零值
func Zero(cur Currency) Money {
	return Money{Currency: cur}
}

// FromDecimal 按币种精度换算，采用银行家舍入
func FromDecimal(d decimal.Decimal, cur Currency) (Money, error) {
	if !cur.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, string(cur))
	}
	minor, err := toMinor(d.Shift(cur.Exponent()).RoundBank(0))
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: minor, Currency: cur}, nil
}

// toMinor 整数值超出 int64 时报错
func toMinor(d decimal.Decimal) (int64, error) {
	value := d.BigInt()
	if !value.IsInt64() {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return value.Int64(), nil
}

// Parse 解析十进制字符串金额，超出币种精度时报错
func Parse(text string, cur Currency) (Money, error) {
	if !cur.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, string(cur))
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	shifted := d.Shift(cur.Exponent())
	if !shifted.Equal(shifted.Truncate(0)) {
		return Money{}, fmt.Errorf("%w: %s exceeds %d decimals for %s", ErrInvalidAmount, text, cur.Exponent(), cur)
	}
	minor, err := toMinor(shifted)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: minor, Currency: cur}, nil
}

// Add 同币种相加
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrAmountOverflow, m, other)
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub 同币种相减
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	if other.Amount == math.MinInt64 {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrAmountOverflow, m, other)
	}
	return m.Add(other.Neg())
}

// Neg 取反
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// IsPositive 是否大于零
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// IsZero 是否为零
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// MulPercent 按百分比计算，结果按银行家舍入到最小单位
//
// 例如 100000 (1000.00 USD) × 2% = 2000 (20.00 USD)。
func (m Money) MulPercent(rate decimal.Decimal) Money {
	value := decimal.NewFromInt(m.Amount).Mul(rate).Div(hundred).RoundBank(0)
	return Money{Amount: value.IntPart(), Currency: m.Currency}
}

// Decimal 转换为十进制金额
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -m.Currency.Exponent())
}

// StringFixed 按币种精度输出数字部分
func (m Money) StringFixed() string {
	return m.Decimal().StringFixed(m.Currency.Exponent())
}

func (m Money) String() string {
	return m.StringFixed() + " " + string(m.Currency)
}

type moneyJSON struct {
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
	Minor    *int64          `json:"minor,omitempty"`
}

// MarshalJSON 输出 {"amount":"20.00","currency":"USD","minor":2000}
func (m Money) MarshalJSON() ([]byte, error) {
	amount, err := json.Marshal(m.StringFixed())
	if err != nil {
		return nil, err
	}
	minor := m.Amount
	return json.Marshal(moneyJSON{Amount: amount, Currency: string(m.Currency), Minor: &minor})
}

// UnmarshalJSON 解析金额，amount 可为字符串或数字
func (m *Money) UnmarshalJSON(b []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	cur, err := ParseCurrency(raw.Currency)
	if err != nil {
		return err
	}
	if len(raw.Amount) == 0 {
		if raw.Minor == nil {
			return fmt.Errorf("%w: amount is required", ErrInvalidAmount)
		}
		*m = New(*raw.Minor, cur)
		return nil
	}
	text := strings.Trim(string(raw.Amount), `"`)
	parsed, err := Parse(text, cur)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
