package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sarvcast-next/internal/constants"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/models"
	"github.com/sarvcast-next/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateManualPaymentInput 手动创建佣金打款参数
type CreateManualPaymentInput struct {
	PartnerID uint         `json:"partner_id" validate:"required"`
	Amount    models.Money `json:"amount"`
	Notes     string       `json:"notes" validate:"max=1000"`
}

// PaymentBucket 统计分组
type PaymentBucket struct {
	Count  int64        `json:"count"`
	Amount models.Money `json:"amount"`
}

// PaymentStatistics 佣金打款统计
type PaymentStatistics struct {
	TotalCount  int64                    `json:"total_count"`
	TotalAmount models.Money             `json:"total_amount"`
	ByStatus    map[string]PaymentBucket `json:"by_status"`
	ByType      map[string]PaymentBucket `json:"by_type"`
}

// CommissionPaymentService 佣金打款服务
type CommissionPaymentService struct {
	repo          repository.CommissionRepository
	affiliateRepo repository.AffiliateRepository
	notifier      CommissionNotifier
	rules         AffiliateRules
	validate      *validator.Validate
	clock         Clock
}

// NewCommissionPaymentService 创建佣金打款服务
func NewCommissionPaymentService(repo repository.CommissionRepository, affiliateRepo repository.AffiliateRepository, notifier CommissionNotifier, rules AffiliateRules, clock Clock) *CommissionPaymentService {
	return &CommissionPaymentService{
		repo:          repo,
		affiliateRepo: affiliateRepo,
		notifier:      notifier,
		rules:         rules.normalized(),
		validate:      newInputValidator(),
		clock:         clock,
	}
}

// CreateManualPayment 手动创建佣金打款（无优惠码关联）
func (s *CommissionPaymentService) CreateManualPayment(ctx context.Context, input CreateManualPaymentInput) (*models.CommissionPayment, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, wrapValidation(err)
	}
	amount := models.NewMoneyFromDecimal(input.Amount.Decimal)
	if !amount.Decimal.IsPositive() {
		return nil, newKindError(ErrValidation, "amount must be positive")
	}
	partner, err := s.affiliateRepo.GetPartnerByID(input.PartnerID)
	if err != nil {
		logger.FromContext(ctx).Errorw("commission_payment_partner_fetch_failed", "partner_id", input.PartnerID, "error", err)
		return nil, internalError(err)
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	now := s.clock.now()
	payment := &models.CommissionPayment{
		PartnerID:      partner.ID,
		Amount:         amount,
		Currency:       s.rules.Currency,
		PaymentType:    constants.CommissionPaymentTypeManual,
		Status:         constants.CommissionPaymentStatusPending,
		PaymentDetails: snapshotBankDetails(partner),
		Notes:          strings.TrimSpace(input.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreatePayment(payment); err != nil {
		logger.FromContext(ctx).Errorw("commission_payment_create_failed", "partner_id", partner.ID, "error", err)
		return nil, internalError(err)
	}
	logger.FromContext(ctx).Infow("commission_payment_created", "payment_id", payment.ID, "partner_id", partner.ID, "amount", payment.Amount.String())
	return payment, nil
}

// GetPayment 获取佣金打款
func (s *CommissionPaymentService) GetPayment(ctx context.Context, id uint) (*models.CommissionPayment, error) {
	payment, err := s.repo.GetPaymentByID(id)
	if err != nil {
		logger.FromContext(ctx).Errorw("commission_payment_fetch_failed", "payment_id", id, "error", err)
		return nil, internalError(err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments 佣金打款列表
func (s *CommissionPaymentService) ListPayments(ctx context.Context, filter repository.CommissionPaymentListFilter) ([]models.CommissionPayment, int64, error) {
	rows, total, err := s.repo.ListPayments(filter)
	if err != nil {
		logger.FromContext(ctx).Errorw("commission_payment_list_failed", "error", err)
		return nil, 0, internalError(err)
	}
	return rows, total, nil
}

// ProcessPayment pending -> processing，记录处理人
func (s *CommissionPaymentService) ProcessPayment(ctx context.Context, id, processorID uint) (*models.CommissionPayment, error) {
	now := s.clock.now()
	return s.transition(ctx, "process", id, func(payment *models.CommissionPayment) ([]string, map[string]interface{}, error) {
		if payment.Status != constants.CommissionPaymentStatusPending {
			return nil, nil, ErrPaymentNotPending
		}
		updates := map[string]interface{}{
			"status":       constants.CommissionPaymentStatusProcessing,
			"processed_at": now,
			"updated_at":   now,
		}
		if processorID != 0 {
			updates["processed_by"] = processorID
		}
		return []string{constants.CommissionPaymentStatusPending}, updates, nil
	})
}

// MarkAsPaid processing -> paid，提交后发出到账通知，通知失败不影响打款状态
func (s *CommissionPaymentService) MarkAsPaid(ctx context.Context, id uint, reference string) (*models.CommissionPayment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		reference = "PAY-" + strings.ToUpper(uuid.NewString())
	}
	now := s.clock.now()
	payment, err := s.transition(ctx, "paid", id, func(payment *models.CommissionPayment) ([]string, map[string]interface{}, error) {
		if payment.Status != constants.CommissionPaymentStatusProcessing {
			return nil, nil, ErrPaymentNotProcessing
		}
		return []string{constants.CommissionPaymentStatusProcessing}, map[string]interface{}{
			"status":            constants.CommissionPaymentStatusPaid,
			"paid_at":           now,
			"payment_reference": reference,
			"updated_at":        now,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyCommissionPaid(ctx, payment); err != nil {
			logger.FromContext(ctx).Warnw("commission_notify_enqueue_failed", "payment_id", payment.ID, "partner_id", payment.PartnerID, "error", err)
		}
	}
	return payment, nil
}

// MarkAsFailed 非终态 -> failed，失败原因追加到备注
func (s *CommissionPaymentService) MarkAsFailed(ctx context.Context, id uint, reason string) (*models.CommissionPayment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, newKindError(ErrValidation, "failure reason is required")
	}
	now := s.clock.now()
	return s.transition(ctx, "failed", id, func(payment *models.CommissionPayment) ([]string, map[string]interface{}, error) {
		switch payment.Status {
		case constants.CommissionPaymentStatusPending, constants.CommissionPaymentStatusProcessing:
		default:
			return nil, nil, ErrPaymentTerminal
		}
		return []string{constants.CommissionPaymentStatusPending, constants.CommissionPaymentStatusProcessing}, map[string]interface{}{
			"status":     constants.CommissionPaymentStatusFailed,
			"notes":      appendPaymentNote(payment.Notes, fmt.Sprintf("[%s] failed: %s", now.UTC().Format("2006-01-02 15:04:05"), reason)),
			"updated_at": now,
		}, nil
	})
}

// BulkProcessPayments 批量 pending -> processing，非 pending 的记录直接跳过
func (s *CommissionPaymentService) BulkProcessPayments(ctx context.Context, ids []uint, processorID uint) (int64, error) {
	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return 0, nil
	}
	now := s.clock.now()
	var processed int64
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		pending, err := repoTx.ListPaymentIDsByStatusForUpdate(unique, constants.CommissionPaymentStatusPending)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		updates := map[string]interface{}{
			"status":       constants.CommissionPaymentStatusProcessing,
			"processed_at": now,
			"updated_at":   now,
		}
		if processorID != 0 {
			updates["processed_by"] = processorID
		}
		affected, err := repoTx.TransitionPayments(pending, []string{constants.CommissionPaymentStatusPending}, updates)
		if err != nil {
			return err
		}
		processed = affected
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Errorw("commission_payment_bulk_process_failed", "requested", len(unique), "error", err)
		return 0, internalError(err)
	}
	logger.FromContext(ctx).Infow("commission_payment_bulk_processed", "requested", len(unique), "processed", processed, "processor_id", processorID)
	return processed, nil
}

// GetPaymentStatistics 按状态与类型汇总
func (s *CommissionPaymentService) GetPaymentStatistics(ctx context.Context) (*PaymentStatistics, error) {
	rows, err := s.repo.AggregatePayments()
	if err != nil {
		logger.FromContext(ctx).Errorw("commission_payment_statistics_failed", "error", err)
		return nil, internalError(err)
	}
	stats := &PaymentStatistics{
		ByStatus: make(map[string]PaymentBucket),
		ByType:   make(map[string]PaymentBucket),
	}
	total := decimal.Zero
	for _, row := range rows {
		stats.TotalCount += row.Count
		total = total.Add(row.Total)
		stats.ByStatus[row.Status] = addBucket(stats.ByStatus[row.Status], row.Count, row.Total)
		stats.ByType[row.PaymentType] = addBucket(stats.ByType[row.PaymentType], row.Count, row.Total)
	}
	stats.TotalAmount = models.NewMoneyFromDecimal(total)
	return stats, nil
}

type paymentTransitionFunc func(payment *models.CommissionPayment) ([]string, map[string]interface{}, error)

// transition 锁定单条打款后按条件更新，状态不符时不做修改
func (s *CommissionPaymentService) transition(ctx context.Context, action string, id uint, decide paymentTransitionFunc) (*models.CommissionPayment, error) {
	var updated *models.CommissionPayment
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		payment, err := repoTx.GetPaymentByIDForUpdate(id)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		fromStatuses, updates, err := decide(payment)
		if err != nil {
			return err
		}
		affected, err := repoTx.TransitionPayments([]uint{id}, fromStatuses, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrPaymentTerminal
		}
		updated, err = repoTx.GetPaymentByID(id)
		return err
	})
	if err != nil {
		if !isKindError(err) {
			err = internalError(err)
		}
		if errors.Is(err, ErrInternal) {
			logger.FromContext(ctx).Errorw("commission_payment_transition_failed", "action", action, "payment_id", id, "error", err)
		}
		return nil, err
	}
	logger.FromContext(ctx).Infow("commission_payment_transitioned", "action", action, "payment_id", id, "status", updated.Status)
	return updated, nil
}

// snapshotBankDetails 复制伙伴当前收款信息，后续修改不影响已生成的打款
func snapshotBankDetails(partner *models.AffiliatePartner) datatypes.JSON {
	if partner == nil || len(partner.BankDetails) == 0 {
		return nil
	}
	snapshot := make(datatypes.JSON, len(partner.BankDetails))
	copy(snapshot, partner.BankDetails)
	return snapshot
}

func appendPaymentNote(existing, note string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func addBucket(bucket PaymentBucket, count int64, amount decimal.Decimal) PaymentBucket {
	bucket.Count += count
	bucket.Amount = models.NewMoneyFromDecimal(bucket.Amount.Decimal.Add(amount))
	return bucket
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
