package money

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCurrency 不支持的币种
	ErrInvalidCurrency = errors.New("invalid currency")
	// ErrCurrencyMismatch 不同币种之间运算
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrInvalidAmount 金额格式错误
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountOverflow 运算结果超出 int64
	ErrAmountOverflow = errors.New("amount overflow")
)

// Currency 币种代码
type Currency string

// 已识别币种
const (
	BRL  Currency = "BRL"
	USD  Currency = "USD"
	EUR  Currency = "EUR"
	USDT Currency = "USDT"
	BTC  Currency = "BTC"
)

// exponents 币种最小单位的小数位数
var exponents = map[Currency]int32{
	BRL:  2,
	USD:  2,
	EUR:  2,
	USDT: 2,
	BTC:  8,
}

// ParseCurrency 解析币种代码
func ParseCurrency(raw string) (Currency, error) {
	code := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := exponents[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, raw)
	}
	return code, nil
}

// MustCurrency 解析币种，失败时 panic（仅用于常量化配置）
func MustCurrency(raw string) Currency {
	cur, err := ParseCurrency(raw)
	if err != nil {
		panic(err)
	}
	return cur
}

// Valid 是否为已识别币种
func (c Currency) Valid() bool {
	_, ok := exponents[c]
	return ok
}

// Exponent 最小单位小数位
func (c Currency) Exponent() int32 {
	return exponents[c]
}

func (c Currency) String() string {
	return string(c)
}

// Known 返回全部已识别币种（按代码排序）
func Known() []Currency {
	out := make([]Currency, 0, len(exponents))
	for code := range exponents {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CurrencySet 币种集合
type CurrencySet map[Currency]struct{}

// NewCurrencySet 从字符串列表构建集合，忽略空值
func NewCurrencySet(codes []string) (CurrencySet, error) {
	set := make(CurrencySet, len(codes))
	for _, raw := range codes {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		cur, err := ParseCurrency(raw)
		if err != nil {
			return nil, err
		}
		set[cur] = struct{}{}
	}
	return set, nil
}

// Contains 判断集合是否包含币种；空集合视为不限制
func (s CurrencySet) Contains(c Currency) bool {
	if len(s) == 0 {
		return c.Valid()
	}
	_, ok := s[c]
	return ok
}
