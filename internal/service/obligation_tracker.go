package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/signaldesk-ledger/internal/cache"
	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/metrics"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/repository"

	"gorm.io/gorm"
)

// ObligationTracker 待结算义务的提交与审核
type ObligationTracker struct {
	db         *gorm.DB
	repo       repository.ObligationRepository
	ledger     *LedgerService
	settlement *SettlementProcessor
	locker     cache.Locker
	cfg        config.LedgerConfig
}

// NewObligationTracker 创建义务跟踪服务
func NewObligationTracker(
	db *gorm.DB,
	repo repository.ObligationRepository,
	ledgerService *LedgerService,
	settlement *SettlementProcessor,
	locker cache.Locker,
	cfg config.LedgerConfig,
) *ObligationTracker {
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	return &ObligationTracker{
		db:         db,
		repo:       repo,
		ledger:     ledgerService,
		settlement: settlement,
		locker:     locker,
		cfg:        cfg,
	}
}

// RefundRequestInput 用户退款申请
type RefundRequestInput struct {
	RequestID string
	UserID    uint
	Amount    money.Money
	Reason    string
}

// PendingFilter 待处理义务查询条件
type PendingFilter struct {
	Kind        string
	Status      string
	AffiliateID uint
	UserID      uint
	Currency    string
	Page        int
	PageSize    int
}

// ObligationView 义务展示
type ObligationView struct {
	models.Obligation
	Owed   money.Money `json:"owed"`
	Profit money.Money `json:"profit"`
}

func newObligationView(ob models.Obligation) ObligationView {
	return ObligationView{Obligation: ob, Owed: ob.Owed(), Profit: ob.Profit()}
}

// DecisionResult 审核结果，批准时携带结算交易号
type DecisionResult struct {
	Obligation ObligationView `json:"obligation"`
	TxID       string         `json:"tx_id,omitempty"`
}

func validateObligation(ob *models.Obligation) error {
	ob.SourceOperationID = strings.TrimSpace(ob.SourceOperationID)
	if ob.SourceOperationID == "" {
		return ErrOperationIDRequired
	}
	switch ob.Kind {
	case constants.ObligationKindCommission:
		if ob.AffiliateID == nil || *ob.AffiliateID == 0 {
			return ErrInvalidInput
		}
	case constants.ObligationKindRefund:
		if ob.UserID == nil || *ob.UserID == 0 {
			return ErrUserIDRequired
		}
	default:
		return ErrInvalidInput
	}
	cur, err := money.ParseCurrency(ob.Currency)
	if err != nil {
		return &LedgerError{Reason: LedgerReasonInvalidCurrency, Detail: ob.Currency}
	}
	ob.Currency = cur.String()
	if ob.AmountMinor <= 0 {
		return &LedgerError{Reason: LedgerReasonNonPositiveAmount}
	}
	return nil
}

// Submit 提交待结算义务，来源操作重复返回 DuplicateSource
func (s *ObligationTracker) Submit(ctx context.Context, ob *models.Obligation) error {
	if ob == nil {
		return ErrInvalidInput
	}
	if err := validateObligation(ob); err != nil {
		return err
	}
	ctx, cancel := s.ledger.withTimeout(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.submitWith(tx, ob)
	})
	if err != nil {
		return wrapResource(err)
	}
	s.ledger.InvalidateOverview(ctx)
	logger.Infow("obligation_submitted",
		"obligation_id", ob.ID,
		"kind", ob.Kind,
		"source_operation_id", ob.SourceOperationID,
		"amount", ob.Owed().String(),
	)
	return nil
}

func (s *ObligationTracker) submitWith(tx *gorm.DB, ob *models.Obligation) error {
	repo := s.repo.WithTx(tx)
	existing, err := repo.GetBySourceOperationID(ob.SourceOperationID)
	if err != nil {
		return err
	}
	if existing != nil {
		return &TrackerError{Reason: TrackerReasonDuplicateSource, ObligationID: existing.ID, Status: existing.Status}
	}

	now := s.ledger.now()
	ob.ID = 0
	ob.Status = constants.ObligationStatusPending
	ob.Version = 0
	ob.DecidedBy = ""
	ob.DecidedAt = nil
	ob.SettledAt = nil
	ob.ClosedAt = nil
	ob.SettlementTxID = ""
	ob.CreatedAt = now
	ob.UpdatedAt = now
	if err := repo.Create(ob); err != nil {
		if isUniqueViolation(err) {
			return &TrackerError{Reason: TrackerReasonDuplicateSource}
		}
		return err
	}

	if !s.cfg.ReserveOnSubmit {
		return nil
	}
	userID, affiliateID := obligationLinks(ob)
	obligationID := ob.ID
	_, err = s.ledger.appendWith(tx, AppendTransactionInput{
		Type:                constants.TxTypeReserva,
		Amount:              ob.Owed(),
		Description:         "reserve " + ob.Kind + " " + ob.SourceOperationID,
		RelatedUserID:       userID,
		RelatedAffiliateID:  affiliateID,
		RelatedOperationID:  ob.SourceOperationID,
		PostedBy:            constants.ActorSystem,
		reserveObligationID: &obligationID,
	})
	return err
}

// SubmitRefund 创建退款义务
func (s *ObligationTracker) SubmitRefund(ctx context.Context, input RefundRequestInput) (*ObligationView, error) {
	requestID := strings.TrimSpace(input.RequestID)
	if requestID == "" {
		return nil, ErrOperationIDRequired
	}
	if input.UserID == 0 {
		return nil, ErrUserIDRequired
	}
	userID := input.UserID
	ob := &models.Obligation{
		Kind:              constants.ObligationKindRefund,
		UserID:            &userID,
		SourceOperationID: constants.RefundSourcePrefix + requestID,
		AmountMinor:       input.Amount.Amount,
		Currency:          input.Amount.Currency.String(),
		Reason:            strings.TrimSpace(input.Reason),
	}
	if err := s.Submit(ctx, ob); err != nil {
		return nil, err
	}
	view := newObligationView(*ob)
	return &view, nil
}

// Decide 审核待处理义务：驳回直接终态，批准在同一事务内结算
func (s *ObligationTracker) Decide(ctx context.Context, id uint, decision, actor string) (*DecisionResult, error) {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if decision != constants.DecisionApprove && decision != constants.DecisionReject {
		return nil, ErrInvalidDecision
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = constants.ActorSystem
	}
	ctx, cancel := s.ledger.withTimeout(ctx)
	defer cancel()

	release, err := s.locker.Acquire(ctx, obligationLockKey(id), s.cfg.LockTTL())
	if err != nil {
		return nil, wrapResource(err)
	}
	defer release()

	started := time.Now()
	var ob *models.Obligation
	var outcome settleOutcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrNotFound
		}
		ob = locked
		if ob.Status != constants.ObligationStatusPending {
			return &TrackerError{Reason: TrackerReasonAlreadySettled, ObligationID: ob.ID, Status: ob.Status}
		}

		now := s.ledger.now()
		updates := map[string]interface{}{
			"decided_by": actor,
			"decided_at": now,
			"updated_at": now,
		}
		nextStatus := constants.ObligationStatusApproved
		if decision == constants.DecisionReject {
			nextStatus = constants.ObligationStatusRejected
			updates["closed_at"] = now
		}
		updates["status"] = nextStatus
		ok, err := repo.CompareAndSwap(ob.ID, constants.ObligationStatusPending, ob.Version, updates)
		if err != nil {
			return err
		}
		if !ok {
			return &TrackerError{Reason: TrackerReasonAlreadySettled, ObligationID: ob.ID, Status: ob.Status}
		}
		ob.Status = nextStatus
		ob.Version++
		ob.DecidedBy = actor
		ob.DecidedAt = &now
		ob.UpdatedAt = now
		if nextStatus == constants.ObligationStatusRejected {
			ob.ClosedAt = &now
			return nil
		}
		outcome, err = s.settlement.settleWith(tx, ob, actor)
		return err
	})

	kind := ""
	if ob != nil {
		kind = ob.Kind
	}
	metrics.IncDecision(kind, decision, err)
	if decision == constants.DecisionApprove && ob != nil {
		metrics.ObserveSettlement(kind, err, time.Since(started))
	}
	if err != nil {
		logger.Warnw("obligation_decide_failed",
			"obligation_id", id,
			"decision", decision,
			"actor", actor,
			"error", err,
		)
		return nil, wrapResource(err)
	}

	if outcome.Posted {
		s.settlement.afterSettle(ctx, ob, outcome.TxID, actor)
	} else {
		s.ledger.InvalidateOverview(ctx)
		logger.Infow("obligation_rejected", "obligation_id", ob.ID, "kind", ob.Kind, "actor", actor)
	}
	return &DecisionResult{Obligation: newObligationView(*ob), TxID: outcome.TxID}, nil
}

// Get 获取义务详情
func (s *ObligationTracker) Get(ctx context.Context, id uint) (*ObligationView, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	ctx, cancel := s.ledger.withTimeout(ctx)
	defer cancel()
	ob, err := s.repo.WithTx(s.db.WithContext(ctx)).GetByID(id)
	if err != nil {
		return nil, wrapResource(err)
	}
	if ob == nil {
		return nil, ErrNotFound
	}
	view := newObligationView(*ob)
	return &view, nil
}

// ListPending 列出义务，默认只含待处理状态
func (s *ObligationTracker) ListPending(ctx context.Context, filter PendingFilter) ([]ObligationView, int64, error) {
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	if status == "" {
		status = constants.ObligationStatusPending
	}
	if status == "all" {
		status = ""
	}
	currency := ""
	if strings.TrimSpace(filter.Currency) != "" {
		cur, err := money.ParseCurrency(filter.Currency)
		if err != nil {
			return nil, 0, &LedgerError{Reason: LedgerReasonInvalidCurrency, Detail: filter.Currency}
		}
		currency = cur.String()
	}
	ctx, cancel := s.ledger.withTimeout(ctx)
	defer cancel()

	rows, total, err := s.repo.WithTx(s.db.WithContext(ctx)).List(repository.ObligationListFilter{
		Page:        filter.Page,
		PageSize:    filter.PageSize,
		Kind:        strings.TrimSpace(filter.Kind),
		Status:      status,
		AffiliateID: filter.AffiliateID,
		UserID:      filter.UserID,
		Currency:    currency,
	})
	if err != nil {
		return nil, 0, wrapResource(err)
	}
	views := make([]ObligationView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newObligationView(row))
	}
	return views, total, nil
}

// ParseObligationID 解析路径中的义务 ID
func ParseObligationID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidInput
	}
	return uint(id), nil
}
