package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestSetDefaultsProvidesTimelineRules(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults failed: %v", err)
	}
	rules := cfg.Timeline.ToRules()
	if rules.MaxEpisodeDuration != 7200 || rules.MinSegmentDuration != 2 || rules.MaxSegmentDuration != 60 {
		t.Fatalf("unexpected timeline rules: %+v", rules)
	}
	if len(rules.TrustedDomains) == 0 {
		t.Fatalf("expected trusted domains")
	}
	if cfg.Cache.TimelineTTLSeconds != 3600 {
		t.Fatalf("expected 1h timeline ttl, got %d", cfg.Cache.TimelineTTLSeconds)
	}
}

func TestSetDefaultsProvidesAffiliateTable(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults failed: %v", err)
	}
	if cfg.Affiliate.TierRates["enterprise"] != 25 || cfg.Affiliate.TierRates["micro"] != 10 {
		t.Fatalf("unexpected tier rates: %+v", cfg.Affiliate.TierRates)
	}
	if cfg.Affiliate.CodePrefixes["teacher"] != "TCH" || cfg.Affiliate.DefaultCodePrefix != "PROMO" {
		t.Fatalf("unexpected code prefixes: %+v", cfg.Affiliate)
	}
	if cfg.Affiliate.CodeLength != 6 {
		t.Fatalf("expected code length 6, got %d", cfg.Affiliate.CodeLength)
	}
}
