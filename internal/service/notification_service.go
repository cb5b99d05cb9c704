package service

import (
	"context"

	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/queue"
	"github.com/sarvcast-next/internal/repository"
)

// CommissionPaidMessage 佣金到账通知内容
type CommissionPaidMessage struct {
	PaymentID        uint
	PartnerID        uint
	PartnerName      string
	Email            string
	Phone            string
	Amount           string
	Currency         string
	PaymentReference string
}

// CommissionPaidSender 通知投递渠道
type CommissionPaidSender interface {
	SendCommissionPaid(ctx context.Context, msg CommissionPaidMessage) error
}

// LogSender 只写日志的投递渠道
type LogSender struct{}

// SendCommissionPaid 记录通知内容
func (LogSender) SendCommissionPaid(ctx context.Context, msg CommissionPaidMessage) error {
	logger.FromContext(ctx).Infow("commission_paid_notification",
		"payment_id", msg.PaymentID,
		"partner_id", msg.PartnerID,
		"email", msg.Email,
		"amount", msg.Amount,
		"currency", msg.Currency,
		"payment_reference", msg.PaymentReference,
	)
	return nil
}

// CommissionNotifier 佣金到账通知入口
type CommissionNotifier interface {
	NotifyCommissionPaid(ctx context.Context, payment *models.CommissionPayment) error
}

// NotificationService 通知服务：启用队列时入队，否则同步投递
type NotificationService struct {
	queueClient   *queue.Client
	affiliateRepo repository.AffiliateRepository
	sender        CommissionPaidSender
}

// NewNotificationService 创建通知服务
func NewNotificationService(queueClient *queue.Client, affiliateRepo repository.AffiliateRepository, sender CommissionPaidSender) *NotificationService {
	if sender == nil {
		sender = LogSender{}
	}
	return &NotificationService{
		queueClient:   queueClient,
		affiliateRepo: affiliateRepo,
		sender:        sender,
	}
}

// NotifyCommissionPaid 发出佣金到账通知
func (s *NotificationService) NotifyCommissionPaid(ctx context.Context, payment *models.CommissionPayment) error {
	if payment == nil {
		return nil
	}
	payload := queue.CommissionPaidNotifyPayload{
		PaymentID:        payment.ID,
		PartnerID:        payment.PartnerID,
		Amount:           payment.Amount.String(),
		Currency:         payment.Currency,
		PaymentReference: payment.PaymentReference,
	}
	if s.queueClient.Enabled() {
		return s.queueClient.EnqueueCommissionPaidNotify(ctx, payload)
	}
	return s.Deliver(ctx, payload)
}

// Deliver 投递一条佣金到账通知（队列消费端调用）
func (s *NotificationService) Deliver(ctx context.Context, payload queue.CommissionPaidNotifyPayload) error {
	msg := CommissionPaidMessage{
		PaymentID:        payload.PaymentID,
		PartnerID:        payload.PartnerID,
		Amount:           payload.Amount,
		Currency:         payload.Currency,
		PaymentReference: payload.PaymentReference,
	}
	if s.affiliateRepo != nil && payload.PartnerID != 0 {
		partner, err := s.affiliateRepo.GetPartnerByID(payload.PartnerID)
		if err != nil {
			return err
		}
		if partner != nil {
			msg.PartnerName = partner.Name
			msg.Email = partner.Email
			msg.Phone = partner.Phone
		}
	}
	return s.sender.SendCommissionPaid(ctx, msg)
}
