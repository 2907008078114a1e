package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/provider"
	"github.com/signaldesk-ledger/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 账本通知消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{Container: c}
}

// Register 注册任务处理函数
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc(queue.TaskObligationSettled, c.handleObligationSettled)
	mux.HandleFunc(queue.TaskLedgerAppended, c.handleLedgerAppended)
}

func decodeObligationSettled(task *asynq.Task) (queue.ObligationSettledPayload, bool, error) {
	var payload queue.ObligationSettledPayload
	if task == nil {
		return payload, false, nil
	}
	if err := queue.Decode(task, &payload); err != nil {
		return payload, false, err
	}
	return payload, payload.ObligationID > 0 && strings.TrimSpace(payload.TxID) != "", nil
}

func decodeLedgerAppended(task *asynq.Task) (queue.LedgerAppendedPayload, bool, error) {
	var payload queue.LedgerAppendedPayload
	if task == nil {
		return payload, false, nil
	}
	if err := queue.Decode(task, &payload); err != nil {
		return payload, false, err
	}
	return payload, strings.TrimSpace(payload.TxID) != "", nil
}

// 通知只做缓存失效与日志，不改账本；载荷无法解析时不再重试
func (c *Consumer) handleObligationSettled(ctx context.Context, task *asynq.Task) error {
	payload, ok, err := decodeObligationSettled(task)
	if err != nil {
		return fmt.Errorf("decode %s: %v: %w", queue.TaskObligationSettled, err, asynq.SkipRetry)
	}
	if !ok {
		logger.Debugw("worker_obligation_settled_skip_invalid_payload", "obligation_id", payload.ObligationID, "tx_id", payload.TxID)
		return nil
	}
	c.refreshOverview(ctx)
	logger.Infow("worker_obligation_settled",
		"obligation_id", payload.ObligationID,
		"kind", payload.Kind,
		"tx_id", payload.TxID,
		"amount_minor", payload.AmountMinor,
		"currency", payload.Currency,
		"actor", payload.Actor,
	)
	return nil
}

func (c *Consumer) handleLedgerAppended(ctx context.Context, task *asynq.Task) error {
	payload, ok, err := decodeLedgerAppended(task)
	if err != nil {
		return fmt.Errorf("decode %s: %v: %w", queue.TaskLedgerAppended, err, asynq.SkipRetry)
	}
	if !ok {
		logger.Debugw("worker_ledger_appended_skip_invalid_payload")
		return nil
	}
	c.refreshOverview(ctx)
	logger.Infow("worker_ledger_appended",
		"tx_id", payload.TxID,
		"type", payload.Type,
		"amount_minor", payload.AmountMinor,
		"currency", payload.Currency,
		"posted_by", payload.PostedBy,
	)
	return nil
}

func (c *Consumer) refreshOverview(ctx context.Context) {
	if c == nil || c.Container == nil || c.LedgerService == nil {
		return
	}
	c.LedgerService.InvalidateOverview(ctx)
}
