package constants

// 时间轴转场类型常量
const (
	TransitionFade     = "fade"
	TransitionCut      = "cut"
	TransitionDissolve = "dissolve"
	TransitionSlide    = "slide"
	TransitionZoom     = "zoom"
)

// 优惠码折扣类型常量
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// 优惠码佣金类型常量
const (
	CommissionRuleNone       = "none"
	CommissionRulePercentage = "percentage"
	CommissionRuleFixed      = "fixed"
)

// 优惠码使用记录状态常量
const (
	CouponUsageStatusCompleted = "completed"
	CouponUsageStatusRefunded  = "refunded"
)

// 推广合作方类型常量
const (
	PartnerTypeTeacher    = "teacher"
	PartnerTypeInfluencer = "influencer"
	PartnerTypeSchool     = "school"
	PartnerTypeCorporate  = "corporate"
	// PartnerTypePartner 通用合作方，仅用于优惠码前缀
	PartnerTypePartner = "partner"
)

// 推广合作方等级常量
const (
	PartnerTierMicro      = "micro"
	PartnerTierMid        = "mid"
	PartnerTierMacro      = "macro"
	PartnerTierEnterprise = "enterprise"
)

// 推广合作方状态常量
const (
	PartnerStatusPending   = "pending"
	PartnerStatusActive    = "active"
	PartnerStatusSuspended = "suspended"
)

// 订阅佣金状态常量
const (
	CommissionStatusPending  = "pending"
	CommissionStatusApproved = "approved"
	CommissionStatusPaid     = "paid"
)

// 订阅状态常量
const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusExpired = "expired"
)

// 佣金付款状态常量
const (
	CommissionPaymentStatusPending    = "pending"
	CommissionPaymentStatusProcessing = "processing"
	CommissionPaymentStatusPaid       = "paid"
	CommissionPaymentStatusFailed     = "failed"
)

// 佣金付款类型常量
const (
	CommissionPaymentTypeCoupon = "coupon_commission"
	CommissionPaymentTypeManual = "manual"
)

// 默认结算币种
const DefaultCurrency = "IRR"

// 队列相关常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskCommissionPaidNotify = "commission:paid_notify"
)
