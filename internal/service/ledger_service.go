package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/signaldesk-ledger/internal/cache"
	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/ledger"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/metrics"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/queue"
	"github.com/signaldesk-ledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultRecentLimit = 20

// LedgerService 账本服务：追加交易与余额推导
type LedgerService struct {
	db             *gorm.DB
	ledgerRepo     repository.LedgerRepository
	obligationRepo repository.ObligationRepository
	cfg            config.LedgerConfig
	currencies     money.CurrencySet
	queueClient    *queue.Client
	now            func() time.Time
}

// NewLedgerService 创建账本服务
func NewLedgerService(
	db *gorm.DB,
	ledgerRepo repository.LedgerRepository,
	obligationRepo repository.ObligationRepository,
	cfg config.LedgerConfig,
	queueClient *queue.Client,
) *LedgerService {
	currencies, err := money.NewCurrencySet(cfg.Currencies)
	if err != nil {
		logger.Warnw("ledger_currency_config_invalid", "currencies", cfg.Currencies, "error", err)
		currencies = money.CurrencySet{}
	}
	return &LedgerService{
		db:             db,
		ledgerRepo:     ledgerRepo,
		obligationRepo: obligationRepo,
		cfg:            cfg,
		currencies:     currencies,
		queueClient:    queueClient,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// AppendTransactionInput 追加交易输入，金额恒为正，方向由类型决定
type AppendTransactionInput struct {
	Type               string
	Amount             money.Money
	Description        string
	RelatedUserID      *uint
	RelatedAffiliateID *uint
	RelatedOperationID string
	PostedBy           string

	settlementObligationID *uint
	reserveObligationID    *uint
}

// Balance 作用域内单币种余额
type Balance struct {
	Scope        string      `json:"scope"`
	Currency     string      `json:"currency"`
	Liquido      money.Money `json:"saldo_liquido"`
	Comprometido money.Money `json:"saldo_comprometido"`
	AsOf         *time.Time  `json:"as_of,omitempty"`
}

// BalanceQuery 余额查询
type BalanceQuery struct {
	Scope    ledger.Scope
	Currency money.Currency
	AsOf     *time.Time
}

// MonthlyFlowQuery 月度流水查询
type MonthlyFlowQuery struct {
	Scope    ledger.Scope
	Currency string
	From     *time.Time
	To       *time.Time
}

// MonthlyFlowRow 月度流水行
type MonthlyFlowRow struct {
	Month    string      `json:"month"`
	Currency string      `json:"currency"`
	Entradas money.Money `json:"entradas"`
	Saidas   money.Money `json:"saidas"`
	Liquido  money.Money `json:"liquido"`
	Reservas money.Money `json:"reservas"`
}

// RecentQuery 最近交易查询
type RecentQuery struct {
	Limit    int
	Type     string
	Currency string
	Scope    ledger.Scope
}

// TransactionView 交易展示，附带带符号金额
type TransactionView struct {
	models.LedgerTransaction
	Amount       money.Money `json:"amount"`
	Liquido      int64       `json:"liquido_delta"`
	Comprometido int64       `json:"comprometido_delta"`
}

// FinancialOverview 财务概览，多币种一律按币种拆分
type FinancialOverview struct {
	Entradas     money.Breakdown            `json:"entradas"`
	Saidas       map[string]money.Breakdown `json:"saidas"`
	Liquido      money.Breakdown            `json:"saldo_liquido"`
	Comprometido money.Breakdown            `json:"saldo_comprometido"`
	PendingCount int64                      `json:"pending_count"`
	PendingOwed  money.Breakdown            `json:"pending_owed"`
	Currencies   []string                   `json:"currencies"`
	GeneratedAt  time.Time                  `json:"generated_at"`
}

// SupportsCurrency 公司账本是否支持该币种
func (s *LedgerService) SupportsCurrency(cur money.Currency) bool {
	return s.currencies.Contains(cur)
}

func (s *LedgerService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.cfg.OperationTimeout())
}

// Append 追加一笔交易，返回交易号
func (s *LedgerService) Append(ctx context.Context, input AppendTransactionInput) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	txn, err := s.appendWith(s.db.WithContext(ctx), input)
	metrics.ObserveAppend(input.Type, err, time.Since(started))
	if err != nil {
		return "", err
	}
	s.afterAppend(ctx, txn)
	return txn.TxID, nil
}

// validate 在任何写入前校验类型、币种与金额
func (s *LedgerService) validate(input AppendTransactionInput) error {
	if !ledger.ValidType(input.Type) {
		return &LedgerError{Reason: LedgerReasonInvalidType, Detail: input.Type}
	}
	if !input.Amount.Currency.Valid() {
		return &LedgerError{Reason: LedgerReasonInvalidCurrency, Detail: string(input.Amount.Currency)}
	}
	if !s.currencies.Contains(input.Amount.Currency) {
		return &LedgerError{Reason: LedgerReasonInvalidCurrency, Detail: string(input.Amount.Currency) + " not supported by company ledger"}
	}
	if !input.Amount.IsPositive() {
		return &LedgerError{Reason: LedgerReasonNonPositiveAmount, Detail: input.Amount.String()}
	}
	return nil
}

// appendWith 在给定连接（可为事务）内写入，不触发提交后副作用
func (s *LedgerService) appendWith(db *gorm.DB, input AppendTransactionInput) (*models.LedgerTransaction, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	postedBy := strings.TrimSpace(input.PostedBy)
	if postedBy == "" {
		postedBy = constants.ActorSystem
	}
	txn := &models.LedgerTransaction{
		TxID:                   uuid.NewString(),
		Type:                   input.Type,
		AmountMinor:            input.Amount.Amount,
		Currency:               string(input.Amount.Currency),
		Description:            strings.TrimSpace(input.Description),
		RelatedUserID:          input.RelatedUserID,
		RelatedAffiliateID:     input.RelatedAffiliateID,
		RelatedOperationID:     strings.TrimSpace(input.RelatedOperationID),
		SettlementObligationID: input.settlementObligationID,
		ReserveObligationID:    input.reserveObligationID,
		PostedBy:               postedBy,
		CreatedAt:              s.now(),
	}
	if err := s.ledgerRepo.WithTx(db).Create(txn); err != nil {
		return nil, wrapResource(err)
	}
	return txn, nil
}

func (s *LedgerService) afterAppend(ctx context.Context, txn *models.LedgerTransaction) {
	s.InvalidateOverview(ctx)
	if txn == nil {
		return
	}
	if err := s.queueClient.EnqueueLedgerAppended(queue.LedgerAppendedPayload{
		TxID:        txn.TxID,
		Type:        txn.Type,
		AmountMinor: txn.AmountMinor,
		Currency:    txn.Currency,
		PostedBy:    txn.PostedBy,
	}); err != nil {
		logger.Warnw("ledger_appended_enqueue_failed", "tx_id", txn.TxID, "error", err)
	}
}

// InvalidateOverview 失效概览缓存
func (s *LedgerService) InvalidateOverview(ctx context.Context) {
	if err := cache.Del(context.WithoutCancel(ctx), constants.CacheKeyAccountingOverview); err != nil {
		logger.Warnw("ledger_overview_cache_invalidate_failed", "error", err)
	}
}

func scopeFilter(scope ledger.Scope) repository.LedgerScopeFilter {
	switch scope.Kind {
	case constants.LedgerScopeUser:
		return repository.LedgerScopeFilter{UserID: scope.ID}
	case constants.LedgerScopeAffiliate:
		return repository.LedgerScopeFilter{AffiliateID: scope.ID}
	default:
		return repository.LedgerScopeFilter{}
	}
}

// balances 从交易集合全量推导各币种余额
func (s *LedgerService) balances(db *gorm.DB, filter repository.LedgerSumFilter) (money.Breakdown, money.Breakdown, error) {
	repo := s.ledgerRepo.WithTx(db)
	rows, err := repo.SumByType(filter)
	if err != nil {
		return nil, nil, wrapResource(err)
	}
	liquido := money.NewBreakdown()
	comprometido := money.NewBreakdown()
	for _, row := range rows {
		cur := money.Currency(row.Currency)
		l, c := ledger.SignedContribution(row.Type, row.Total)
		liquido.Add(money.New(l, cur))
		comprometido.Add(money.New(c, cur))
	}
	settled, err := repo.SumSettledReserves(filter)
	if err != nil {
		return nil, nil, wrapResource(err)
	}
	for _, row := range settled {
		comprometido.Add(money.New(-row.Total, money.Currency(row.Currency)))
	}
	return liquido, comprometido, nil
}

// Balance 查询作用域内单币种余额
func (s *LedgerService) Balance(ctx context.Context, query BalanceQuery) (*Balance, error) {
	if !query.Currency.Valid() {
		return nil, &LedgerError{Reason: LedgerReasonInvalidCurrency, Detail: string(query.Currency)}
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var asOf *time.Time
	if query.AsOf != nil {
		t := query.AsOf.UTC()
		asOf = &t
	}
	var liquido, comprometido money.Breakdown
	err := repository.SnapshotRead(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		liquido, comprometido, err = s.balances(tx, repository.LedgerSumFilter{
			Scope:    scopeFilter(query.Scope),
			Currency: string(query.Currency),
			AsOf:     asOf,
		})
		return err
	})
	if err != nil {
		return nil, wrapResource(err)
	}
	return &Balance{
		Scope:        query.Scope.String(),
		Currency:     string(query.Currency),
		Liquido:      liquido.Get(query.Currency),
		Comprometido: comprometido.Get(query.Currency),
		AsOf:         asOf,
	}, nil
}

// MonthlyFlow 按月汇总流入、流出与预留
func (s *LedgerService) MonthlyFlow(ctx context.Context, query MonthlyFlowQuery) ([]MonthlyFlowRow, error) {
	currency := strings.TrimSpace(query.Currency)
	if currency != "" {
		cur, err := money.ParseCurrency(currency)
		if err != nil {
			return nil, &LedgerError{Reason: LedgerReasonInvalidCurrency, Detail: currency}
		}
		currency = string(cur)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.ledgerRepo.WithTx(s.db.WithContext(ctx)).SumMonthly(repository.MonthlyFlowFilter{
		Scope:    scopeFilter(query.Scope),
		Currency: currency,
		From:     query.From,
		To:       query.To,
	})
	if err != nil {
		return nil, wrapResource(err)
	}

	type flowKey struct {
		month    string
		currency string
	}
	type flowSum struct {
		entradas int64
		saidas   int64
		reservas int64
	}
	sums := make(map[flowKey]*flowSum)
	keys := make([]flowKey, 0)
	for _, row := range rows {
		key := flowKey{month: row.Month, currency: row.Currency}
		sum, ok := sums[key]
		if !ok {
			sum = &flowSum{}
			sums[key] = sum
			keys = append(keys, key)
		}
		switch ledger.DirectionOf(row.Type) {
		case ledger.DirectionInflow:
			sum.entradas += row.Total
		case ledger.DirectionOutflow:
			sum.saidas += row.Total
		case ledger.DirectionCommitted:
			sum.reservas += row.Total
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].month != keys[j].month {
			return keys[i].month < keys[j].month
		}
		return keys[i].currency < keys[j].currency
	})

	result := make([]MonthlyFlowRow, 0, len(keys))
	for _, key := range keys {
		sum := sums[key]
		cur := money.Currency(key.currency)
		result = append(result, MonthlyFlowRow{
			Month:    key.month,
			Currency: key.currency,
			Entradas: money.New(sum.entradas, cur),
			Saidas:   money.New(sum.saidas, cur),
			Liquido:  money.New(sum.entradas-sum.saidas, cur),
			Reservas: money.New(sum.reservas, cur),
		})
	}
	return result, nil
}

// ListRecent 最近交易（倒序）
func (s *LedgerService) ListRecent(ctx context.Context, query RecentQuery) ([]TransactionView, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limitMax := s.cfg.RecentLimitMax; limitMax > 0 && limit > limitMax {
		limit = limitMax
	}
	txType := strings.TrimSpace(query.Type)
	if txType != "" && !ledger.ValidType(txType) {
		return nil, &LedgerError{Reason: LedgerReasonInvalidType, Detail: txType}
	}
	currency := strings.TrimSpace(query.Currency)
	if currency != "" {
		cur, err := money.ParseCurrency(currency)
		if err != nil {
			return nil, &LedgerError{Reason: LedgerReasonInvalidCurrency, Detail: currency}
		}
		currency = string(cur)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, _, err := s.ledgerRepo.WithTx(s.db.WithContext(ctx)).List(repository.TransactionListFilter{
		Page:     1,
		PageSize: limit,
		Scope:    scopeFilter(query.Scope),
		Type:     txType,
		Currency: currency,
	})
	if err != nil {
		return nil, wrapResource(err)
	}
	views := make([]TransactionView, 0, len(rows))
	for _, row := range rows {
		l, c := ledger.SignedContribution(row.Type, row.AmountMinor)
		views = append(views, TransactionView{
			LedgerTransaction: row,
			Amount:            row.Amount(),
			Liquido:           l,
			Comprometido:      c,
		})
	}
	return views, nil
}

// Overview 平台财务概览，Redis 启用时短时缓存
func (s *LedgerService) Overview(ctx context.Context) (*FinancialOverview, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ttl := s.cfg.OverviewCacheTTL()
	if ttl > 0 {
		var cached FinancialOverview
		hit, err := cache.GetJSON(ctx, constants.CacheKeyAccountingOverview, &cached)
		if err != nil {
			logger.Warnw("ledger_overview_cache_get_failed", "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	overview := &FinancialOverview{
		Entradas:     money.NewBreakdown(),
		Saidas:       make(map[string]money.Breakdown),
		PendingOwed:  money.NewBreakdown(),
		Currencies:   make([]string, 0),
		GeneratedAt:  s.now(),
		Liquido:      money.NewBreakdown(),
		Comprometido: money.NewBreakdown(),
	}
	for _, txType := range ledger.OutflowTypes() {
		overview.Saidas[txType] = money.NewBreakdown()
	}
	// 流水汇总、余额与待处理义务取自同一快照
	err := repository.SnapshotRead(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		rows, err := s.ledgerRepo.WithTx(tx).SumByType(repository.LedgerSumFilter{})
		if err != nil {
			return err
		}
		for _, row := range rows {
			amount := money.New(row.Total, money.Currency(row.Currency))
			switch ledger.DirectionOf(row.Type) {
			case ledger.DirectionInflow:
				overview.Entradas.Add(amount)
			case ledger.DirectionOutflow:
				overview.Saidas[row.Type].Add(amount)
			}
		}
		liquido, comprometido, err := s.balances(tx, repository.LedgerSumFilter{})
		if err != nil {
			return err
		}
		overview.Liquido = liquido
		overview.Comprometido = comprometido

		pending, err := s.obligationRepo.WithTx(tx).SumByCurrency(repository.ObligationSumFilter{
			Statuses: []string{constants.ObligationStatusPending},
		})
		if err != nil {
			return err
		}
		for _, row := range pending {
			overview.PendingCount += row.Count
			overview.PendingOwed.Add(money.New(row.Total, money.Currency(row.Currency)))
		}
		return nil
	})
	if err != nil {
		return nil, wrapResource(err)
	}
	for _, cur := range overview.Liquido.Currencies() {
		overview.Currencies = append(overview.Currencies, string(cur))
	}

	if ttl > 0 {
		if err := cache.SetJSON(ctx, constants.CacheKeyAccountingOverview, overview, ttl); err != nil {
			logger.Warnw("ledger_overview_cache_set_failed", "error", err)
		}
	}
	return overview, nil
}
