package money

import (
	"encoding/json"
	"sort"
)

// Breakdown 多币种汇总，各币种独立累计，绝不跨币种求和
type Breakdown map[Currency]int64

// NewBreakdown 创建空汇总
func NewBreakdown() Breakdown {
	return Breakdown{}
}

// Add 累加一笔金额到对应币种
func (b Breakdown) Add(m Money) {
	b[m.Currency] += m.Amount
}

// Get 读取指定币种合计
func (b Breakdown) Get(cur Currency) Money {
	return Money{Amount: b[cur], Currency: cur}
}

// Currencies 返回出现过的币种（排序）
func (b Breakdown) Currencies() []Currency {
	out := make([]Currency, 0, len(b))
	for cur := range b {
		out = append(out, cur)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Items 按币种排序输出
func (b Breakdown) Items() []Money {
	out := make([]Money, 0, len(b))
	for _, cur := range b.Currencies() {
		out = append(out, b.Get(cur))
	}
	return out
}

// MarshalJSON 输出为币种排序后的金额列表
func (b Breakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Items())
}

// UnmarshalJSON 从金额列表恢复汇总（用于缓存读取）
func (b *Breakdown) UnmarshalJSON(data []byte) error {
	var items []Money
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Breakdown, len(items))
	for _, item := range items {
		out.Add(item)
	}
	*b = out
	return nil
}
