package provider

import (
	"testing"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/constants"

	"github.com/shopspring/decimal"
)

func TestAffiliateRulesFromConfigNormalizesKeys(t *testing.T) {
	rules := AffiliateRulesFromConfig(config.AffiliateConfig{
		TierRates:    map[string]float64{" Micro ": 12.345},
		CodePrefixes: map[string]string{"Influencer": " inf "},
		Currency:     "irr",
	})
	if !rules.TierRates[constants.PartnerTierMicro].Equal(decimal.RequireFromString("12.35")) {
		t.Fatalf("unexpected micro rate: %v", rules.TierRates)
	}
	if rules.CodePrefix(constants.PartnerTypeInfluencer) != "INF" {
		t.Fatalf("unexpected influencer prefix: %v", rules.CodePrefixes)
	}
	if rules.Currency != "IRR" {
		t.Fatalf("unexpected currency: %s", rules.Currency)
	}
}
