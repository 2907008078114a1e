package ledger

import (
	"github.com/signaldesk-ledger/internal/money"
)

// Accumulator 增量维护的多币种余额
//
// 与从交易集合全量重算的结果必须一致，用于校验余额无漂移。
type Accumulator struct {
	liquido      money.Breakdown
	comprometido money.Breakdown
}

// NewAccumulator 创建空累加器
func NewAccumulator() *Accumulator {
	return &Accumulator{
		liquido:      money.NewBreakdown(),
		comprometido: money.NewBreakdown(),
	}
}

// Apply 计入一笔交易
func (a *Accumulator) Apply(txType string, amount money.Money) {
	l, c := SignedContribution(txType, amount.Amount)
	a.liquido.Add(money.New(l, amount.Currency))
	a.comprometido.Add(money.New(c, amount.Currency))
}

// Release 关联义务终结后释放一笔预留
func (a *Accumulator) Release(amount money.Money) {
	a.comprometido.Add(amount.Neg())
}

// Liquido 指定币种可用余额
func (a *Accumulator) Liquido(cur money.Currency) money.Money {
	return a.liquido.Get(cur)
}

// Comprometido 指定币种冻结余额
func (a *Accumulator) Comprometido(cur money.Currency) money.Money {
	return a.comprometido.Get(cur)
}

// Currencies 出现过的币种
func (a *Accumulator) Currencies() []money.Currency {
	seen := money.NewBreakdown()
	for _, cur := range a.liquido.Currencies() {
		seen[cur] = 0
	}
	for _, cur := range a.comprometido.Currencies() {
		seen[cur] = 0
	}
	return seen.Currencies()
}
