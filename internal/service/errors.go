package service

import (
	"errors"
	"fmt"

	"github.com/sarvcast-next/internal/timeline"
)

// 错误类别：调用方只需按类别决定处理方式
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// kindError 携带类别的具体错误，errors.Is 对自身与类别都成立
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// 通用输入错误
var (
	ErrInvalidInput = newKindError(ErrValidation, "invalid input")
)

// 时间轴相关错误
var (
	ErrEpisodeNotFound = newKindError(ErrNotFound, "episode not found")
)

// 优惠码相关错误
var (
	ErrCouponNotFound      = newKindError(ErrNotFound, "coupon code not found")
	ErrCouponInactive      = newKindError(ErrValidation, "coupon code is not active")
	ErrCouponNotStarted    = newKindError(ErrValidation, "coupon code is not yet valid")
	ErrCouponExpired       = newKindError(ErrValidation, "coupon code has expired")
	ErrCouponUsageLimit    = newKindError(ErrValidation, "coupon code usage limit reached")
	ErrCouponMinAmount     = newKindError(ErrValidation, "amount is below the coupon minimum")
	ErrCouponAlreadyUsed   = newKindError(ErrConflict, "coupon code already used by this user")
	ErrCouponCodeExists    = newKindError(ErrConflict, "coupon code already exists")
	ErrCouponCodeGenerate  = newKindError(ErrInternal, "failed to generate unique coupon code")
	ErrSubscriptionMissing = newKindError(ErrNotFound, "subscription not found")
)

// 合作伙伴与佣金相关错误
var (
	ErrPartnerNotFound      = newKindError(ErrNotFound, "affiliate partner not found")
	ErrPartnerNotActive     = newKindError(ErrValidation, "affiliate partner is not active")
	ErrPartnerStatusInvalid = newKindError(ErrConflict, "affiliate partner status does not allow this action")
	ErrCommissionExists     = newKindError(ErrConflict, "commission already exists for subscription")
	ErrPaymentNotFound      = newKindError(ErrNotFound, "commission payment not found")
	ErrPaymentNotPending    = newKindError(ErrConflict, "commission payment is not pending")
	ErrPaymentNotProcessing = newKindError(ErrConflict, "commission payment is not processing")
	ErrPaymentTerminal      = newKindError(ErrConflict, "commission payment is already settled")
)

// TimelineValidationError 时间轴校验失败，携带完整结果
type TimelineValidationError struct {
	Result *timeline.Result
}

func (e *TimelineValidationError) Error() string {
	if e == nil || e.Result == nil || len(e.Result.Errors) == 0 {
		return "timeline validation failed"
	}
	return fmt.Sprintf("timeline validation failed: %s", e.Result.Errors[0].Message)
}

// Is 归入 ErrValidation 类别
func (e *TimelineValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CouponMinAmountError 未达门槛时附带门槛金额
type CouponMinAmountError struct {
	Minimum string
}

func (e *CouponMinAmountError) Error() string {
	return fmt.Sprintf("amount is below the coupon minimum of %s", e.Minimum)
}

// Is 同时匹配 ErrCouponMinAmount 与 ErrValidation
func (e *CouponMinAmountError) Is(target error) bool {
	return target == ErrCouponMinAmount || target == ErrValidation
}

// internalError 记录原始错误，对外只暴露 ErrInternal
func internalError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

// isKindError 是否为已归类的业务错误
func isKindError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInternal)
}
