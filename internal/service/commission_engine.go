package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/metrics"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClosedOperation 已平仓的交易操作
type ClosedOperation struct {
	ID                   string
	UserID               uint
	ReferringAffiliateID *uint
	Profit               money.Money
	ClosedAt             time.Time
}

// CommissionEngine 由已平仓操作计算推广佣金
type CommissionEngine struct {
	db            *gorm.DB
	affiliateRepo repository.AffiliateRepository
	obligations   repository.ObligationRepository
	tracker       *ObligationTracker
	rates         CommissionRates
}

// NewCommissionEngine 创建佣金引擎
func NewCommissionEngine(
	db *gorm.DB,
	affiliateRepo repository.AffiliateRepository,
	obligations repository.ObligationRepository,
	tracker *ObligationTracker,
	rates CommissionRates,
) *CommissionEngine {
	return &CommissionEngine{
		db:            db,
		affiliateRepo: affiliateRepo,
		obligations:   obligations,
		tracker:       tracker,
		rates:         rates,
	}
}

// RateAt 返回 closedAt 时生效的费率，历史为空时按 VIP 标记取配置费率
func (r CommissionRates) RateAt(affiliate *models.Affiliate, history []models.AffiliateRateChange, closedAt time.Time) decimal.Decimal {
	var found *models.AffiliateRateChange
	for i := range history {
		item := &history[i]
		if item.EffectiveDate.After(closedAt) {
			continue
		}
		if found == nil || item.EffectiveDate.After(found.EffectiveDate) ||
			(item.EffectiveDate.Equal(found.EffectiveDate) && item.ID > found.ID) {
			found = item
		}
	}
	if found != nil {
		return found.Rate.Decimal
	}
	isVip := affiliate != nil && affiliate.IsVip
	return r.For(isVip)
}

// ComputeCommission 纯计算：亏损、无推荐人、推广者非活跃、自推荐或金额舍入为零时不产生义务
func (e *CommissionEngine) ComputeCommission(op ClosedOperation, affiliate *models.Affiliate, history []models.AffiliateRateChange) (*models.Obligation, error) {
	return computeCommission(e.rates, op, affiliate, history)
}

func computeCommission(rates CommissionRates, op ClosedOperation, affiliate *models.Affiliate, history []models.AffiliateRateChange) (*models.Obligation, error) {
	operationID := strings.TrimSpace(op.ID)
	if operationID == "" {
		return nil, ErrOperationIDRequired
	}
	if !op.Profit.Currency.Valid() {
		return nil, &LedgerError{Reason: LedgerReasonInvalidCurrency, Detail: op.Profit.Currency.String()}
	}
	if !op.Profit.IsPositive() {
		return nil, nil
	}
	if op.ReferringAffiliateID == nil || affiliate == nil || affiliate.ID != *op.ReferringAffiliateID {
		return nil, nil
	}
	if affiliate.Status != constants.AffiliateStatusActive {
		return nil, nil
	}
	if affiliate.UserID == op.UserID {
		return nil, nil
	}

	closedAt := op.ClosedAt.UTC()
	rate := rates.RateAt(affiliate, history, closedAt)
	owed := op.Profit.MulPercent(rate)
	if !owed.IsPositive() {
		return nil, nil
	}

	affiliateID := affiliate.ID
	userID := op.UserID
	return &models.Obligation{
		Kind:              constants.ObligationKindCommission,
		AffiliateID:       &affiliateID,
		UserID:            &userID,
		SourceOperationID: operationID,
		ProfitMinor:       op.Profit.Amount,
		RateApplied:       models.NewPercent(rate),
		AmountMinor:       owed.Amount,
		Currency:          owed.Currency.String(),
		OperationClosedAt: &closedAt,
	}, nil
}

// RecordClosedOperation 计算并提交佣金义务，重复来源返回已存义务且 created=false
func (e *CommissionEngine) RecordClosedOperation(ctx context.Context, op ClosedOperation) (*ObligationView, bool, error) {
	op.ID = strings.TrimSpace(op.ID)
	if op.ID == "" {
		return nil, false, ErrOperationIDRequired
	}
	if op.ClosedAt.IsZero() {
		return nil, false, ErrInvalidInput
	}

	existing, err := e.findExisting(ctx, op.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		metrics.IncCommission(metrics.CommissionDuplicate)
		return existing, false, nil
	}

	var affiliate *models.Affiliate
	var history []models.AffiliateRateChange
	if op.ReferringAffiliateID != nil && *op.ReferringAffiliateID != 0 {
		repo := e.affiliateRepo.WithTx(e.db.WithContext(ctx))
		affiliate, err = repo.GetByID(*op.ReferringAffiliateID)
		if err != nil {
			return nil, false, wrapResource(err)
		}
		if affiliate == nil {
			return nil, false, ErrAffiliateNotFound
		}
		history, err = repo.ListRateChanges(affiliate.ID)
		if err != nil {
			return nil, false, wrapResource(err)
		}
	}

	ob, err := e.ComputeCommission(op, affiliate, history)
	if err != nil {
		return nil, false, err
	}
	if ob == nil {
		metrics.IncCommission(metrics.CommissionSkipped)
		logger.Debugw("commission_skipped",
			"operation_id", op.ID,
			"user_id", op.UserID,
			"profit", op.Profit.String(),
		)
		return nil, false, nil
	}

	if err := e.tracker.Submit(ctx, ob); err != nil {
		if errors.Is(err, ErrDuplicateSource) {
			existing, findErr := e.findExisting(ctx, op.ID)
			if findErr != nil {
				return nil, false, findErr
			}
			if existing != nil {
				metrics.IncCommission(metrics.CommissionDuplicate)
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	metrics.IncCommission(metrics.CommissionCreated)
	view := newObligationView(*ob)
	return &view, true, nil
}

func (e *CommissionEngine) findExisting(ctx context.Context, operationID string) (*ObligationView, error) {
	ob, err := e.obligations.WithTx(e.db.WithContext(ctx)).GetBySourceOperationID(operationID)
	if err != nil {
		return nil, wrapResource(err)
	}
	if ob == nil {
		return nil, nil
	}
	view := newObligationView(*ob)
	return &view, nil
}

// sortRateHistory 按生效日期升序
func sortRateHistory(history []models.AffiliateRateChange) {
	sort.SliceStable(history, func(i, j int) bool {
		if history[i].EffectiveDate.Equal(history[j].EffectiveDate) {
			return history[i].ID < history[j].ID
		}
		return history[i].EffectiveDate.Before(history[j].EffectiveDate)
	})
}
