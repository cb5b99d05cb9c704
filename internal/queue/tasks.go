package queue

import (
	"encoding/json"
	"fmt"

	"github.com/sarvcast-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionPaidNotify 佣金到账通知任务
	TaskCommissionPaidNotify = constants.TaskCommissionPaidNotify
)

// CommissionPaidNotifyPayload 佣金到账通知任务载荷
type CommissionPaidNotifyPayload struct {
	PaymentID        uint   `json:"payment_id"`
	PartnerID        uint   `json:"partner_id"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	PaymentReference string `json:"payment_reference"`
}

// NewCommissionPaidNotifyTask 创建佣金到账通知任务
func NewCommissionPaidNotifyTask(payload CommissionPaidNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionPaidNotify, body), nil
}

// ParseCommissionPaidNotifyPayload 解析佣金到账通知载荷
func ParseCommissionPaidNotifyPayload(task *asynq.Task) (CommissionPaidNotifyPayload, error) {
	var payload CommissionPaidNotifyPayload
	if task == nil {
		return payload, fmt.Errorf("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	if payload.PaymentID == 0 {
		return payload, fmt.Errorf("payment_id is required")
	}
	return payload, nil
}
