package queue

import (
	"encoding/json"

	"github.com/signaldesk-ledger/internal/constants"

	"github.com/hibiken/asynq"
)

// 任务类型
const (
	TaskObligationSettled = constants.TaskObligationSettled
	TaskLedgerAppended    = constants.TaskLedgerAppended
)

// ObligationSettledPayload 义务结算完成
type ObligationSettledPayload struct {
	ObligationID uint   `json:"obligation_id"`
	Kind         string `json:"kind"`
	TxID         string `json:"tx_id"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
	Actor        string `json:"actor"`
}

// LedgerAppendedPayload 账本新增一条流水
type LedgerAppendedPayload struct {
	TxID        string `json:"tx_id"`
	Type        string `json:"type"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	PostedBy    string `json:"posted_by"`
}

// NewObligationSettledTask 构建结算完成任务
func NewObligationSettledTask(payload ObligationSettledPayload) (*asynq.Task, error) {
	return newJSONTask(TaskObligationSettled, payload)
}

// NewLedgerAppendedTask 构建账本追加任务
func NewLedgerAppendedTask(payload LedgerAppendedPayload) (*asynq.Task, error) {
	return newJSONTask(TaskLedgerAppended, payload)
}

// Decode 解析任务载荷
func Decode(task *asynq.Task, dest interface{}) error {
	return json.Unmarshal(task.Payload(), dest)
}

func newJSONTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
