package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/constants"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/models"
	"github.com/signaldesk-ledger/internal/money"
	"github.com/signaldesk-ledger/internal/provider"
	"github.com/signaldesk-ledger/internal/service"

	"github.com/shopspring/decimal"
)

const seedActor = "system:seed"

type seedAffiliate struct {
	UserID uint
	Code   string
	IsVip  bool
	Join   time.Time
}

type seedOperation struct {
	ID          string
	UserID      uint
	AffiliateOf uint
	ProfitMinor int64
	Currency    money.Currency
	ClosedAt    time.Time
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 种子只写库，不投递通知
	cfg.Queue.Enabled = false
	c := provider.NewContainer(cfg)
	ctx := context.Background()

	// 推广者
	affiliates := []seedAffiliate{
		{UserID: 1001, Code: "ALPHA01", Join: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{UserID: 1002, Code: "BETAVIP", IsVip: true, Join: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{UserID: 1003, Code: "GAMMA03", Join: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	affiliateIDs := map[uint]uint{}
	for _, item := range affiliates {
		join := item.Join
		created, err := c.AffiliateService.Create(ctx, service.CreateAffiliateInput{
			UserID:   item.UserID,
			Code:     item.Code,
			IsVip:    item.IsVip,
			JoinDate: &join,
			Actor:    seedActor,
		})
		switch {
		case err == nil:
			affiliateIDs[item.UserID] = created.ID
			stdLog.Printf("Created affiliate: %s (user %d)", created.AffiliateCode, item.UserID)
		case errors.Is(err, service.ErrAffiliateExists):
			existing, getErr := c.AffiliateRepo.GetByUserID(item.UserID)
			if getErr != nil || existing == nil {
				stdLog.Printf("Failed to load affiliate for user %d: %v", item.UserID, getErr)
				continue
			}
			affiliateIDs[item.UserID] = existing.ID
			stdLog.Printf("Affiliate already exists: %s", existing.AffiliateCode)
		default:
			stdLog.Printf("Failed to create affiliate for user %d: %v", item.UserID, err)
		}
	}

	// 一次未来生效的费率调整，演示按平仓日取费率
	if id, ok := affiliateIDs[1001]; ok {
		nextMonth := time.Now().UTC().AddDate(0, 1, 0)
		if _, err := c.AffiliateService.ChangeRate(ctx, id, service.ChangeRateInput{
			Rate:          decimal.RequireFromString("3"),
			EffectiveDate: &nextMonth,
			Reason:        "seed tier upgrade",
			Actor:         seedActor,
		}); err != nil && !errors.Is(err, service.ErrRateDateConflict) {
			stdLog.Printf("Failed to change rate: %v", err)
		}
	}

	// 入金流水（已有流水时跳过，追加不幂等）
	var txCount int64
	if err := models.DB.Model(&models.LedgerTransaction{}).Count(&txCount).Error; err != nil {
		stdLog.Fatalf("Failed to count ledger transactions: %v", err)
	}
	if txCount == 0 {
		deposits := []money.Money{
			money.New(5000000, money.USD),
			money.New(1200000, money.BRL),
			money.New(800000, money.EUR),
		}
		for _, amount := range deposits {
			txID, err := c.LedgerService.Append(ctx, service.AppendTransactionInput{
				Type:        constants.TxTypeEntrada,
				Amount:      amount,
				Description: "seed capital",
				PostedBy:    seedActor,
			})
			if err != nil {
				stdLog.Printf("Failed to append deposit %s: %v", amount, err)
				continue
			}
			stdLog.Printf("Appended deposit %s (%s)", amount, txID)
		}
	} else {
		stdLog.Printf("Ledger already has %d transactions, skipping deposits", txCount)
	}

	// 平仓操作 → 佣金义务（按操作号去重）
	operations := []seedOperation{
		{ID: "seed-op-001", UserID: 2001, AffiliateOf: 1001, ProfitMinor: 100000, Currency: money.USD, ClosedAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)},
		{ID: "seed-op-002", UserID: 2002, AffiliateOf: 1002, ProfitMinor: 250000, Currency: money.USD, ClosedAt: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)},
		{ID: "seed-op-003", UserID: 2003, AffiliateOf: 1001, ProfitMinor: 90000, Currency: money.BRL, ClosedAt: time.Date(2025, 7, 2, 18, 0, 0, 0, time.UTC)},
		{ID: "seed-op-004", UserID: 2004, AffiliateOf: 1003, ProfitMinor: -30000, Currency: money.USD, ClosedAt: time.Date(2025, 7, 5, 11, 0, 0, 0, time.UTC)},
	}
	var firstCommission uint
	for _, op := range operations {
		input := service.ClosedOperation{
			ID:       op.ID,
			UserID:   op.UserID,
			Profit:   money.New(op.ProfitMinor, op.Currency),
			ClosedAt: op.ClosedAt,
		}
		if id, ok := affiliateIDs[op.AffiliateOf]; ok {
			affiliateID := id
			input.ReferringAffiliateID = &affiliateID
		}
		view, created, err := c.CommissionEngine.RecordClosedOperation(ctx, input)
		if err != nil {
			stdLog.Printf("Failed to record operation %s: %v", op.ID, err)
			continue
		}
		if view == nil {
			stdLog.Printf("Operation %s produced no commission", op.ID)
			continue
		}
		if firstCommission == 0 {
			firstCommission = view.ID
		}
		stdLog.Printf("Operation %s → obligation %d owed %s (created=%v)", op.ID, view.ID, view.Owed, created)
	}

	// 批准并结算第一笔佣金
	if firstCommission != 0 {
		result, err := c.ObligationTracker.Decide(ctx, firstCommission, constants.DecisionApprove, seedActor)
		switch {
		case err == nil:
			stdLog.Printf("Approved obligation %d, settlement tx %s", firstCommission, result.TxID)
		case errors.Is(err, service.ErrAlreadySettled):
			stdLog.Printf("Obligation %d already decided", firstCommission)
		default:
			stdLog.Printf("Failed to approve obligation %d: %v", firstCommission, err)
		}
	}

	// 一笔待审核退款
	refund, err := c.ObligationTracker.SubmitRefund(ctx, service.RefundRequestInput{
		RequestID: "seed-refund-001",
		UserID:    2002,
		Amount:    money.New(4990, money.USD),
		Reason:    "subscription refund",
	})
	switch {
	case err == nil:
		stdLog.Printf("Submitted refund obligation %d", refund.ID)
	case errors.Is(err, service.ErrDuplicateSource):
		stdLog.Printf("Refund seed-refund-001 already submitted")
	default:
		stdLog.Printf("Failed to submit refund: %v", err)
	}

	overview, err := c.LedgerService.Overview(ctx)
	if err != nil {
		stdLog.Fatalf("Failed to load overview: %v", err)
	}
	fmt.Printf("Seed completed. pending=%d net=%v\n", overview.PendingCount, overview.Liquido)
}
