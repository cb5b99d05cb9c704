package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/provider"
	"github.com/sarvcast-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionPaidNotify, c.handleCommissionPaidNotify)
}

func (c *Consumer) handleCommissionPaidNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || c.NotificationService == nil || task == nil {
		logger.Debugw("worker_commission_paid_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCommissionPaidNotifyPayload(task)
	if err != nil {
		logger.Warnw("worker_commission_paid_notify_invalid_payload", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := c.NotificationService.Deliver(ctx, payload); err != nil {
		logger.Warnw("worker_commission_paid_notify_failed", "payment_id", payload.PaymentID, "partner_id", payload.PartnerID, "error", err)
		return err
	}
	logger.Debugw("worker_commission_paid_notify_done", "payment_id", payload.PaymentID)
	return nil
}

// sweepExpiredCoupons 定时停用过期优惠码
func (c *Consumer) sweepExpiredCoupons() {
	if c == nil || c.Container == nil || c.CouponService == nil {
		return
	}
	if _, err := c.CouponService.DeactivateExpired(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnw("worker_coupon_expiry_sweep_failed", "error", err)
	}
}
