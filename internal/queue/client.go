package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 高优先级队列
	CriticalQueue = constants.QueueCritical
)

const commissionPaidMaxRetry = 5

// Client 队列客户端封装，未启用时所有投递均为空操作
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(buildRedisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueCommissionPaidNotify 推送佣金到账通知任务
// 以打款 ID 作为任务 ID，同一笔打款重复入队会被去重。
func (c *Client) EnqueueCommissionPaidNotify(ctx context.Context, payload CommissionPaidNotifyPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCommissionPaidNotifyTask(payload)
	if err != nil {
		return err
	}
	options := []asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(commissionPaidMaxRetry),
		asynq.TaskID(CommissionPaidTaskID(payload.PaymentID)),
	}
	_, err = c.client.EnqueueContext(ctx, task, append(options, opts...)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// CommissionPaidTaskID 佣金到账通知的去重任务 ID
func CommissionPaidTaskID(paymentID uint) string {
	return TaskCommissionPaidNotify + ":" + strconv.FormatUint(uint64(paymentID), 10)
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{DefaultQueue: 1, CriticalQueue: 2},
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return buildRedisOpt(cfg), serverCfg
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, fmt.Sprint(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
