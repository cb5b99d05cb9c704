package timeline

import "strings"

// Rules 时间轴校验规则，由配置注入，测试可替换
type Rules struct {
	MaxEpisodeDuration   float64
	MinSegments          int
	MaxSegments          int
	MinSegmentDuration   float64
	MaxSegmentDuration   float64
	AllowedExtensions    []string
	TrustedDomains       []string
	MinCoveragePercent   float64
	MaxUniqueImages      int
	MaxGap               float64
	ShortSegmentDuration float64
	ShortSegmentRatio    float64
	WarnUniqueImages     int
}

// DefaultRules 默认校验规则
func DefaultRules() Rules {
	return Rules{
		MaxEpisodeDuration:   7200,
		MinSegments:          1,
		MaxSegments:          100,
		MinSegmentDuration:   2,
		MaxSegmentDuration:   60,
		AllowedExtensions:    []string{"jpg", "jpeg", "png", "webp", "gif"},
		TrustedDomains:       []string{"sarvcast.ir", "cdn.sarvcast.ir", "my.sarvcast.ir"},
		MinCoveragePercent:   50,
		MaxUniqueImages:      20,
		MaxGap:               30,
		ShortSegmentDuration: 5,
		ShortSegmentRatio:    0.5,
		WarnUniqueImages:     15,
	}
}

// WithTrustedDomains 返回追加了可信域名的规则副本
func (r Rules) WithTrustedDomains(domains ...string) Rules {
	merged := make([]string, 0, len(r.TrustedDomains)+len(domains))
	merged = append(merged, r.TrustedDomains...)
	merged = append(merged, domains...)
	r.TrustedDomains = merged
	return r
}

func (r Rules) normalized() Rules {
	defaults := DefaultRules()
	if r.MaxEpisodeDuration <= 0 {
		r.MaxEpisodeDuration = defaults.MaxEpisodeDuration
	}
	if r.MinSegments <= 0 {
		r.MinSegments = defaults.MinSegments
	}
	if r.MaxSegments <= 0 {
		r.MaxSegments = defaults.MaxSegments
	}
	if r.MinSegmentDuration <= 0 {
		r.MinSegmentDuration = defaults.MinSegmentDuration
	}
	if r.MaxSegmentDuration <= 0 {
		r.MaxSegmentDuration = defaults.MaxSegmentDuration
	}
	if len(r.AllowedExtensions) == 0 {
		r.AllowedExtensions = defaults.AllowedExtensions
	}
	if r.MinCoveragePercent <= 0 {
		r.MinCoveragePercent = defaults.MinCoveragePercent
	}
	if r.MaxUniqueImages <= 0 {
		r.MaxUniqueImages = defaults.MaxUniqueImages
	}
	if r.MaxGap <= 0 {
		r.MaxGap = defaults.MaxGap
	}
	if r.ShortSegmentDuration <= 0 {
		r.ShortSegmentDuration = defaults.ShortSegmentDuration
	}
	if r.ShortSegmentRatio <= 0 {
		r.ShortSegmentRatio = defaults.ShortSegmentRatio
	}
	if r.WarnUniqueImages <= 0 {
		r.WarnUniqueImages = defaults.WarnUniqueImages
	}
	r.AllowedExtensions = normalizeLowerList(r.AllowedExtensions, ".")
	r.TrustedDomains = normalizeLowerList(r.TrustedDomains, "")
	return r
}

func normalizeLowerList(items []string, trimPrefix string) []string {
	result := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		value := strings.ToLower(strings.TrimSpace(item))
		if trimPrefix != "" {
			value = strings.TrimPrefix(value, trimPrefix)
		}
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
