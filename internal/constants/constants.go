package constants

// 账本交易类型常量
const (
	TxTypeEntrada           = "entrada"
	TxTypePagamentoUsuario  = "pagamento_usuario"
	TxTypePagamentoAfiliado = "pagamento_afiliado"
	TxTypeRetiradaEmpresa   = "retirada_empresa"
	TxTypeReserva           = "reserva"
)

// 账本范围常量
const (
	LedgerScopePlatform  = "platform"
	LedgerScopeUser      = "user"
	LedgerScopeAffiliate = "affiliate"
)

// 待结算义务类型常量
const (
	ObligationKindCommission = "commission"
	ObligationKindRefund     = "refund"
)

// 待结算义务状态常量
const (
	ObligationStatusPending  = "pending"
	ObligationStatusApproved = "approved"
	ObligationStatusPaid     = "paid"
	ObligationStatusRejected = "rejected"
)

// 审核动作常量
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// 推广者状态常量
const (
	AffiliateStatusActive    = "active"
	AffiliateStatusInactive  = "inactive"
	AffiliateStatusSuspended = "suspended"
)

// 退款义务来源前缀
const RefundSourcePrefix = "refund:"

// 系统操作人
const ActorSystem = "system"

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskObligationSettled = "obligation:settled"
	TaskLedgerAppended    = "ledger:appended"
)

// 缓存 key 常量
const (
	CacheKeyAccountingOverview = "accounting:overview"
	LockKeyObligationPrefix    = "lock:obligation:"
)
