package queue

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency = 10
	defaultMaxRetry    = 3
	// 同一 tx_id 的通知在保留期内只入队一次
	notificationRetention = 24 * time.Hour
)

// Client 通知任务投递客户端，未启用队列时所有投递为空操作
type Client struct {
	inner *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{inner: asynq.NewClient(RedisOpt(cfg))}, nil
}

// Enabled 是否真正投递
func (c *Client) Enabled() bool {
	return c != nil && c.inner != nil
}

// Close 关闭底层连接
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.inner.Close()
}

// EnqueueObligationSettled 投递结算完成通知，按 tx_id 去重
func (c *Client) EnqueueObligationSettled(payload ObligationSettledPayload, opts ...asynq.Option) error {
	task, err := NewObligationSettledTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, constants.QueueCritical, "settled:"+payload.TxID, opts)
}

// EnqueueLedgerAppended 投递账本追加通知，按 tx_id 去重
func (c *Client) EnqueueLedgerAppended(payload LedgerAppendedPayload, opts ...asynq.Option) error {
	task, err := NewLedgerAppendedTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, constants.QueueDefault, "appended:"+payload.TxID, opts)
}

func (c *Client) enqueue(task *asynq.Task, queueName, taskID string, extra []asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Retention(notificationRetention),
	}
	if strings.TrimSpace(taskID) != "" {
		opts = append(opts, asynq.TaskID(taskID))
	}
	_, err := c.inner.Enqueue(task, append(opts, extra...)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// ServerConfig 消费端配置，未配置队列权重时只消费默认队列
func ServerConfig(cfg *config.QueueConfig) asynq.Config {
	out := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{constants.QueueCritical: 2, constants.QueueDefault: 1},
	}
	if cfg == nil {
		return out
	}
	if cfg.Concurrency > 0 {
		out.Concurrency = cfg.Concurrency
	}
	if len(cfg.Queues) > 0 {
		out.Queues = cfg.Queues
	}
	return out
}

// RedisOpt 队列 Redis 连接参数
func RedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host, port := "127.0.0.1", 6379
	opt := asynq.RedisClientOpt{}
	if cfg != nil {
		if h := strings.TrimSpace(cfg.Host); h != "" {
			host = h
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		opt.Password = cfg.Password
		opt.DB = cfg.DB
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	return opt
}
