package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/signaldesk-ledger/internal/cache"
	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/metrics"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/queue"
	"github.com/signaldesk-ledger/internal/repository"

	"gorm.io/gorm"
)

// SettlementProcessor 将已批准义务转换为唯一一笔账本交易
type SettlementProcessor struct {
	db             *gorm.DB
	obligationRepo repository.ObligationRepository
	ledgerRepo     repository.LedgerRepository
	ledger         *LedgerService
	locker         cache.Locker
	cfg            config.LedgerConfig
	queueClient    *queue.Client
}

// NewSettlementProcessor 创建结算处理器
func NewSettlementProcessor(
	db *gorm.DB,
	obligationRepo repository.ObligationRepository,
	ledgerRepo repository.LedgerRepository,
	ledgerService *LedgerService,
	locker cache.Locker,
	cfg config.LedgerConfig,
	queueClient *queue.Client,
) *SettlementProcessor {
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	return &SettlementProcessor{
		db:             db,
		obligationRepo: obligationRepo,
		ledgerRepo:     ledgerRepo,
		ledger:         ledgerService,
		locker:         locker,
		cfg:            cfg,
		queueClient:    queueClient,
	}
}

// settleOutcome 事务内结算结果
type settleOutcome struct {
	TxID   string
	Posted bool
}

func obligationLockKey(id uint) string {
	return constants.LockKeyObligationPrefix + strconv.FormatUint(uint64(id), 10)
}

// settlementTxType 义务类型对应的结算交易类型
func settlementTxType(kind string) string {
	if kind == constants.ObligationKindRefund {
		return constants.TxTypePagamentoUsuario
	}
	return constants.TxTypePagamentoAfiliado
}

// obligationLinks 佣金只归属推广者，退款只归属用户
func obligationLinks(ob *models.Obligation) (userID, affiliateID *uint) {
	if ob.Kind == constants.ObligationKindRefund {
		return ob.UserID, nil
	}
	return nil, ob.AffiliateID
}

// Settle 结算义务：已支付返回原交易号，已批准则入账并置为已支付
func (s *SettlementProcessor) Settle(ctx context.Context, obligationID uint, actor string) (string, error) {
	ctx, cancel := s.ledger.withTimeout(ctx)
	defer cancel()

	release, err := s.locker.Acquire(ctx, obligationLockKey(obligationID), s.cfg.LockTTL())
	if err != nil {
		return "", wrapResource(err)
	}
	defer release()

	started := time.Now()
	var ob *models.Obligation
	var outcome settleOutcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.obligationRepo.WithTx(tx).GetByIDForUpdate(obligationID)
		if err != nil {
			return wrapResource(err)
		}
		if locked == nil {
			return ErrNotFound
		}
		ob = locked
		outcome, err = s.settleWith(tx, ob, actor)
		return err
	})
	kind := ""
	if ob != nil {
		kind = ob.Kind
	}
	metrics.ObserveSettlement(kind, err, time.Since(started))
	if err != nil {
		return "", wrapResource(err)
	}
	if outcome.Posted {
		s.afterSettle(ctx, ob, outcome.TxID, actor)
	}
	return outcome.TxID, nil
}

// settleWith 在调用方事务内结算，调用方须持有义务锁
func (s *SettlementProcessor) settleWith(tx *gorm.DB, ob *models.Obligation, actor string) (settleOutcome, error) {
	switch ob.Status {
	case constants.ObligationStatusPaid:
		if ob.SettlementTxID != "" {
			return settleOutcome{TxID: ob.SettlementTxID}, nil
		}
		posted, err := s.ledgerRepo.WithTx(tx).GetBySettlementObligationID(ob.ID)
		if err != nil {
			return settleOutcome{}, wrapResource(err)
		}
		if posted == nil {
			return settleOutcome{}, &SettleError{Reason: SettleReasonObligationNotApproved, ObligationID: ob.ID}
		}
		return settleOutcome{TxID: posted.TxID}, nil
	case constants.ObligationStatusApproved:
	default:
		return settleOutcome{}, &SettleError{Reason: SettleReasonObligationNotApproved, ObligationID: ob.ID}
	}

	userID, affiliateID := obligationLinks(ob)
	obligationID := ob.ID
	txn, err := s.ledger.appendWith(tx, AppendTransactionInput{
		Type:                   settlementTxType(ob.Kind),
		Amount:                 ob.Owed(),
		Description:            settlementDescription(ob),
		RelatedUserID:          userID,
		RelatedAffiliateID:     affiliateID,
		RelatedOperationID:     ob.SourceOperationID,
		PostedBy:               actor,
		settlementObligationID: &obligationID,
	})
	if err != nil {
		var ledgerErr *LedgerError
		if errors.As(err, &ledgerErr) {
			return settleOutcome{}, &SettleError{Reason: SettleReasonLedgerRejected, ObligationID: ob.ID, Cause: ledgerErr}
		}
		return settleOutcome{}, err
	}

	now := s.ledger.now()
	ok, err := s.obligationRepo.WithTx(tx).CompareAndSwap(ob.ID, constants.ObligationStatusApproved, ob.Version, map[string]interface{}{
		"status":           constants.ObligationStatusPaid,
		"settled_at":       now,
		"closed_at":        now,
		"settlement_tx_id": txn.TxID,
		"updated_at":       now,
	})
	if err != nil {
		return settleOutcome{}, wrapResource(err)
	}
	if !ok {
		return settleOutcome{}, &TrackerError{Reason: TrackerReasonAlreadySettled, ObligationID: ob.ID, Status: ob.Status}
	}
	ob.Status = constants.ObligationStatusPaid
	ob.Version++
	ob.SettledAt = &now
	ob.ClosedAt = &now
	ob.SettlementTxID = txn.TxID
	ob.UpdatedAt = now
	return settleOutcome{TxID: txn.TxID, Posted: true}, nil
}

func settlementDescription(ob *models.Obligation) string {
	if ob.Kind == constants.ObligationKindRefund {
		if ob.Reason != "" {
			return "refund: " + ob.Reason
		}
		return "refund"
	}
	return "affiliate commission " + ob.SourceOperationID
}

// afterSettle 提交后副作用，失败只记录日志
func (s *SettlementProcessor) afterSettle(ctx context.Context, ob *models.Obligation, txID, actor string) {
	s.ledger.InvalidateOverview(ctx)
	metrics.AddSettledAmount(ob.Currency, ob.AmountMinor)
	logger.Infow("obligation_settled",
		"obligation_id", ob.ID,
		"kind", ob.Kind,
		"tx_id", txID,
		"amount", ob.Owed().String(),
		"actor", actor,
	)
	if err := s.queueClient.EnqueueObligationSettled(queue.ObligationSettledPayload{
		ObligationID: ob.ID,
		Kind:         ob.Kind,
		TxID:         txID,
		AmountMinor:  ob.AmountMinor,
		Currency:     ob.Currency,
		Actor:        actor,
	}); err != nil {
		logger.Warnw("obligation_settled_enqueue_failed", "obligation_id", ob.ID, "tx_id", txID, "error", err)
	}
}
