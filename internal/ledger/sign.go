// Package ledger 账本符号规则与作用域
package ledger

import (
	"github.com/signaldesk-ledger/internal/constants"
)

// Direction 交易对余额的影响方向
type Direction int

const (
	// DirectionUnknown 未识别类型
	DirectionUnknown Direction = iota
	// DirectionInflow 流入，增加可用余额
	DirectionInflow
	// DirectionOutflow 流出，减少可用余额
	DirectionOutflow
	// DirectionCommitted 预留，仅影响冻结余额
	DirectionCommitted
)

var directions = map[string]Direction{
	constants.TxTypeEntrada:           DirectionInflow,
	constants.TxTypePagamentoUsuario:  DirectionOutflow,
	constants.TxTypePagamentoAfiliado: DirectionOutflow,
	constants.TxTypeRetiradaEmpresa:   DirectionOutflow,
	constants.TxTypeReserva:           DirectionCommitted,
}

// Types 全部交易类型（固定顺序）
func Types() []string {
	return []string{
		constants.TxTypeEntrada,
		constants.TxTypePagamentoUsuario,
		constants.TxTypePagamentoAfiliado,
		constants.TxTypeRetiradaEmpresa,
		constants.TxTypeReserva,
	}
}

// DirectionOf 返回交易类型的方向
func DirectionOf(txType string) Direction {
	if dir, ok := directions[txType]; ok {
		return dir
	}
	return DirectionUnknown
}

// ValidType 是否为已知交易类型
func ValidType(txType string) bool {
	return DirectionOf(txType) != DirectionUnknown
}

// OutflowTypes 全部流出类型
func OutflowTypes() []string {
	out := make([]string, 0, 3)
	for _, t := range Types() {
		if DirectionOf(t) == DirectionOutflow {
			out = append(out, t)
		}
	}
	return out
}

// SignedContribution 计算单笔交易对可用余额与冻结余额的带符号贡献
//
// 金额始终以正数存储，符号只由类型决定。余额聚合、增量累加与展示层都经过这里。
func SignedContribution(txType string, minor int64) (liquido, comprometido int64) {
	switch DirectionOf(txType) {
	case DirectionInflow:
		return minor, 0
	case DirectionOutflow:
		return -minor, 0
	case DirectionCommitted:
		return 0, minor
	default:
		return 0, 0
	}
}
