package service

import (
	"strings"

	"github.com/sarvcast-next/internal/constants"

	"github.com/shopspring/decimal"
)

// AffiliateRules 推广规则表（等级费率、粉丝阈值、优惠码前缀）
type AffiliateRules struct {
	TierRates         map[string]decimal.Decimal
	MacroFollowers    int
	MidFollowers      int
	CodePrefixes      map[string]string
	DefaultCodePrefix string
	CodeLength        int
	Currency          string
}

// DefaultAffiliateRules 默认推广规则
func DefaultAffiliateRules() AffiliateRules {
	return AffiliateRules{
		TierRates: map[string]decimal.Decimal{
			constants.PartnerTierMicro:      decimal.NewFromInt(10),
			constants.PartnerTierMid:        decimal.NewFromInt(15),
			constants.PartnerTierMacro:      decimal.NewFromInt(20),
			constants.PartnerTierEnterprise: decimal.NewFromInt(25),
		},
		MacroFollowers: 100000,
		MidFollowers:   10000,
		CodePrefixes: map[string]string{
			constants.PartnerTypeInfluencer: "INF",
			constants.PartnerTypeTeacher:    "TCH",
			constants.PartnerTypePartner:    "PRT",
		},
		DefaultCodePrefix: "PROMO",
		CodeLength:        6,
		Currency:          constants.DefaultCurrency,
	}
}

func (r AffiliateRules) normalized() AffiliateRules {
	defaults := DefaultAffiliateRules()
	if len(r.TierRates) == 0 {
		r.TierRates = defaults.TierRates
	}
	if r.MacroFollowers <= 0 {
		r.MacroFollowers = defaults.MacroFollowers
	}
	if r.MidFollowers <= 0 {
		r.MidFollowers = defaults.MidFollowers
	}
	if len(r.CodePrefixes) == 0 {
		r.CodePrefixes = defaults.CodePrefixes
	}
	if strings.TrimSpace(r.DefaultCodePrefix) == "" {
		r.DefaultCodePrefix = defaults.DefaultCodePrefix
	}
	if r.CodeLength <= 0 {
		r.CodeLength = defaults.CodeLength
	}
	if strings.TrimSpace(r.Currency) == "" {
		r.Currency = defaults.Currency
	}
	return r
}

// DeriveTier 根据类型与粉丝数推导等级
func (r AffiliateRules) DeriveTier(partnerType string, followers int) string {
	switch partnerType {
	case constants.PartnerTypeInfluencer:
		if followers >= r.MacroFollowers {
			return constants.PartnerTierMacro
		}
		if followers >= r.MidFollowers {
			return constants.PartnerTierMid
		}
		return constants.PartnerTierMicro
	case constants.PartnerTypeSchool, constants.PartnerTypeCorporate:
		return constants.PartnerTierEnterprise
	default:
		return constants.PartnerTierMicro
	}
}

// RateForTier 等级默认佣金比例
func (r AffiliateRules) RateForTier(tier string) decimal.Decimal {
	if rate, ok := r.TierRates[tier]; ok {
		return rate
	}
	return decimal.Zero
}

// CodePrefix 优惠码前缀
func (r AffiliateRules) CodePrefix(partnerType string) string {
	if prefix, ok := r.CodePrefixes[strings.ToLower(strings.TrimSpace(partnerType))]; ok && prefix != "" {
		return prefix
	}
	return r.DefaultCodePrefix
}
