package timeline

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/sarvcast-next/internal/constants"

	"github.com/go-playground/validator/v10"
)

var transitionTag = "oneof=" + strings.Join([]string{
	constants.TransitionFade,
	constants.TransitionCut,
	constants.TransitionDissolve,
	constants.TransitionSlide,
	constants.TransitionZoom,
}, " ")

// NormalizeTransition 转场类型统一为小写，空值保持为空
func NormalizeTransition(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// 校验问题代码
const (
	CodeEpisodeDurationInvalid = "episode_duration_invalid"
	CodeSegmentCountInvalid    = "segment_count_invalid"
	CodeTimelineEmpty          = "timeline_empty"
	CodeFieldRequired          = "field_required"
	CodeStartNegative          = "start_negative"
	CodeEndExceedsEpisode      = "end_exceeds_episode"
	CodeStartNotBeforeEnd      = "start_not_before_end"
	CodeSegmentTooShort        = "segment_too_short"
	CodeSegmentTooLong         = "segment_too_long"
	CodeImageURLInvalid        = "image_url_invalid"
	CodeImageFormatInvalid     = "image_format_invalid"
	CodeImageDomainUntrusted   = "image_domain_untrusted"
	CodeTransitionInvalid      = "transition_type_invalid"
	CodeSegmentsOverlap        = "segments_overlap"
	CodeStartNotAtZero         = "start_not_at_zero"
	CodeEndNotAtDuration       = "end_not_at_duration"
	CodeCoverageTooLow         = "coverage_too_low"
	CodeTooManyImages          = "too_many_images"
	CodeGapTooLarge            = "gap_too_large"
	CodeTooManyShortSegments   = "too_many_short_segments"
	CodeManyImages             = "many_images"
)

// Issue 单条校验错误或警告
// Index 为原始输入下标，-1 表示不针对具体片段。
type Issue struct {
	Code    string                 `json:"code"`
	Index   int                    `json:"index"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Statistics 时间轴统计（基于输入计算，不受错误过滤）
type Statistics struct {
	TotalEntries       int     `json:"total_entries"`
	UniqueImages       int     `json:"unique_images"`
	TotalDuration      float64 `json:"total_duration"`
	CoveragePercentage float64 `json:"coverage_percentage"`
	AverageDuration    float64 `json:"average_duration"`
	MinDuration        float64 `json:"min_duration"`
	MaxDuration        float64 `json:"max_duration"`
	FirstStart         float64 `json:"first_start"`
	LastEnd            float64 `json:"last_end"`
}

// Result 校验结果
type Result struct {
	Valid      bool        `json:"valid"`
	Errors     []Issue     `json:"errors"`
	Warnings   []Issue     `json:"warnings"`
	Statistics *Statistics `json:"statistics,omitempty"`
}

// ErrorMessages 错误文案列表
func (r *Result) ErrorMessages() []string {
	return issueMessages(r.Errors)
}

// WarningMessages 警告文案列表
func (r *Result) WarningMessages() []string {
	return issueMessages(r.Warnings)
}

// HasError 是否包含指定代码的错误
func (r *Result) HasError(code string) bool {
	for _, issue := range r.Errors {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func (r *Result) addError(code string, index int, params map[string]interface{}, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Issue{Code: code, Index: index, Message: fmt.Sprintf(format, args...), Params: params})
}

func (r *Result) addWarning(code string, params map[string]interface{}, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Index: -1, Message: fmt.Sprintf(format, args...), Params: params})
}

// Validator 时间轴校验器
type Validator struct {
	rules      Rules
	validate   *validator.Validate
	extensions map[string]struct{}
}

// NewValidator 创建校验器
func NewValidator(rules Rules) *Validator {
	rules = rules.normalized()
	extensions := make(map[string]struct{}, len(rules.AllowedExtensions))
	for _, ext := range rules.AllowedExtensions {
		extensions[ext] = struct{}{}
	}
	return &Validator{
		rules:      rules,
		validate:   validator.New(),
		extensions: extensions,
	}
}

// Rules 当前生效的规则
func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate 按阶段校验时间轴：任一阶段出错即不再进入后续阶段
func (v *Validator) Validate(segments []Segment, episodeDuration float64) *Result {
	result := &Result{Errors: []Issue{}, Warnings: []Issue{}}
	if len(segments) > 0 {
		result.Statistics = ComputeStatistics(segments, episodeDuration)
	}

	ok := v.checkBasic(result, segments, episodeDuration)
	if ok {
		order := sortedIndexes(segments)
		ok = v.checkEntries(result, segments, order, episodeDuration)
		if ok {
			set := NewIntervalSet(segments)
			ok = v.checkStructure(result, set, episodeDuration)
			if ok {
				ok = v.checkBusiness(result, set, episodeDuration)
			}
			if ok {
				v.checkPerformance(result, set)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *Validator) checkBasic(result *Result, segments []Segment, episodeDuration float64) bool {
	before := len(result.Errors)
	if episodeDuration <= 0 || episodeDuration > v.rules.MaxEpisodeDuration {
		result.addError(CodeEpisodeDurationInvalid, -1,
			map[string]interface{}{"duration": episodeDuration, "max": v.rules.MaxEpisodeDuration},
			"episode duration must be greater than 0 and at most %s seconds", formatSeconds(v.rules.MaxEpisodeDuration))
	}
	if len(segments) == 0 {
		result.addError(CodeTimelineEmpty, -1, nil, "timeline must contain at least %d entry", v.rules.MinSegments)
		return false
	}
	if len(segments) < v.rules.MinSegments || len(segments) > v.rules.MaxSegments {
		result.addError(CodeSegmentCountInvalid, -1,
			map[string]interface{}{"count": len(segments), "min": v.rules.MinSegments, "max": v.rules.MaxSegments},
			"timeline must contain between %d and %d entries, got %d", v.rules.MinSegments, v.rules.MaxSegments, len(segments))
	}
	return len(result.Errors) == before
}

func (v *Validator) checkEntries(result *Result, segments []Segment, order []int, episodeDuration float64) bool {
	before := len(result.Errors)
	for _, idx := range order {
		seg := segments[idx]
		entry := idx + 1
		if seg.StartTime == nil {
			result.addError(CodeFieldRequired, idx, map[string]interface{}{"field": "start_time"}, "entry %d: start_time is required", entry)
		}
		if seg.EndTime == nil {
			result.addError(CodeFieldRequired, idx, map[string]interface{}{"field": "end_time"}, "entry %d: end_time is required", entry)
		}
		imageURL := normalizeImageURL(seg.ImageURL)
		if imageURL == "" {
			result.addError(CodeFieldRequired, idx, map[string]interface{}{"field": "image_url"}, "entry %d: image_url is required", entry)
		}

		if seg.HasTimes() {
			start, end := seg.Start(), seg.End()
			if start < 0 {
				result.addError(CodeStartNegative, idx, map[string]interface{}{"start_time": start}, "entry %d: start_time cannot be negative", entry)
			}
			if end > episodeDuration {
				result.addError(CodeEndExceedsEpisode, idx,
					map[string]interface{}{"end_time": end, "duration": episodeDuration},
					"entry %d: end_time (%s) exceeds episode duration (%s)", entry, formatSeconds(end), formatSeconds(episodeDuration))
			}
			if start >= end {
				result.addError(CodeStartNotBeforeEnd, idx, nil, "entry %d: start_time must be before end_time", entry)
			}
			duration := end - start
			if duration < v.rules.MinSegmentDuration {
				result.addError(CodeSegmentTooShort, idx,
					map[string]interface{}{"duration": duration, "min": v.rules.MinSegmentDuration},
					"entry %d: duration must be at least %s seconds", entry, formatSeconds(v.rules.MinSegmentDuration))
			}
			if duration > v.rules.MaxSegmentDuration {
				result.addError(CodeSegmentTooLong, idx,
					map[string]interface{}{"duration": duration, "max": v.rules.MaxSegmentDuration},
					"entry %d: duration must be at most %s seconds", entry, formatSeconds(v.rules.MaxSegmentDuration))
			}
		}

		if imageURL != "" {
			v.checkImageURL(result, idx, imageURL)
		}
		if transition := NormalizeTransition(seg.TransitionType); transition != "" {
			if err := v.validate.Var(transition, transitionTag); err != nil {
				result.addError(CodeTransitionInvalid, idx, map[string]interface{}{"transition_type": seg.TransitionType},
					"entry %d: unknown transition type %q", entry, seg.TransitionType)
			}
		}
	}
	return len(result.Errors) == before
}

// checkImageURL 语法、扩展名、可信域名三项独立报告
func (v *Validator) checkImageURL(result *Result, idx int, raw string) {
	entry := idx + 1
	if err := v.validate.Var(raw, "url"); err != nil {
		result.addError(CodeImageURLInvalid, idx, map[string]interface{}{"image_url": raw}, "entry %d: image_url is not a valid URL", entry)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(parsed.Path)), ".")
	if _, ok := v.extensions[ext]; !ok {
		result.addError(CodeImageFormatInvalid, idx,
			map[string]interface{}{"extension": ext, "allowed": v.rules.AllowedExtensions},
			"entry %d: image format must be one of %s", entry, strings.Join(v.rules.AllowedExtensions, ", "))
	}
	if !v.isTrustedHost(parsed.Hostname()) {
		result.addError(CodeImageDomainUntrusted, idx, map[string]interface{}{"host": parsed.Hostname()}, "entry %d: image host is not a trusted domain", entry)
	}
}

func (v *Validator) isTrustedHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}
	for _, domain := range v.rules.TrustedDomains {
		if strings.Contains(host, domain) {
			return true
		}
	}
	return false
}

func (v *Validator) checkStructure(result *Result, set *IntervalSet, episodeDuration float64) bool {
	before := len(result.Errors)
	for _, pair := range set.Overlaps() {
		result.addError(CodeSegmentsOverlap, pair.Left,
			map[string]interface{}{"left": pair.Left, "right": pair.Right, "overlap": pair.Amount},
			"entries %d and %d overlap", pair.Left+1, pair.Right+1)
	}
	if first, ok := set.First(); ok && first.Start != 0 {
		result.addError(CodeStartNotAtZero, first.Index, map[string]interface{}{"start_time": first.Start}, "timeline must start at 0 seconds")
	}
	if last, ok := set.Last(); ok && last.End != episodeDuration {
		result.addError(CodeEndNotAtDuration, last.Index,
			map[string]interface{}{"end_time": last.End, "duration": episodeDuration},
			"timeline must end at episode duration (%s seconds)", formatSeconds(episodeDuration))
	}
	return len(result.Errors) == before
}

func (v *Validator) checkBusiness(result *Result, set *IntervalSet, episodeDuration float64) bool {
	before := len(result.Errors)
	coverage := set.CoveragePercent(episodeDuration)
	if coverage < v.rules.MinCoveragePercent {
		result.addError(CodeCoverageTooLow, -1,
			map[string]interface{}{"coverage": round(coverage, 1), "min": v.rules.MinCoveragePercent},
			"timeline covers %.1f%% of the episode, at least %s%% is required", round(coverage, 1), formatSeconds(v.rules.MinCoveragePercent))
	}
	if unique := set.UniqueImages(); unique > v.rules.MaxUniqueImages {
		result.addError(CodeTooManyImages, -1,
			map[string]interface{}{"unique_images": unique, "max": v.rules.MaxUniqueImages},
			"timeline uses %d distinct images, at most %d are allowed", unique, v.rules.MaxUniqueImages)
	}
	for _, gap := range set.Gaps() {
		if gap.Amount > v.rules.MaxGap {
			result.addError(CodeGapTooLarge, gap.Left,
				map[string]interface{}{"left": gap.Left, "right": gap.Right, "gap": gap.Amount, "max": v.rules.MaxGap},
				"gap of %s seconds between entries %d and %d exceeds %s seconds",
				formatSeconds(gap.Amount), gap.Left+1, gap.Right+1, formatSeconds(v.rules.MaxGap))
		}
	}
	return len(result.Errors) == before
}

func (v *Validator) checkPerformance(result *Result, set *IntervalSet) {
	total := set.Len()
	if total == 0 {
		return
	}
	short := 0
	for _, item := range set.Items() {
		if item.Duration() < v.rules.ShortSegmentDuration {
			short++
		}
	}
	if float64(short)/float64(total) > v.rules.ShortSegmentRatio {
		result.addWarning(CodeTooManyShortSegments,
			map[string]interface{}{"short_segments": short, "total": total},
			"%d of %d entries are shorter than %s seconds, playback may flicker", short, total, formatSeconds(v.rules.ShortSegmentDuration))
	}
	if unique := set.UniqueImages(); unique > v.rules.WarnUniqueImages {
		result.addWarning(CodeManyImages,
			map[string]interface{}{"unique_images": unique},
			"timeline uses %d distinct images, loading may be slow", unique)
	}
}

// ComputeStatistics 统计输入片段（仅起止时间齐全的片段参与时长统计）
func ComputeStatistics(segments []Segment, episodeDuration float64) *Statistics {
	stats := &Statistics{TotalEntries: len(segments)}
	set := NewIntervalSet(segments)
	stats.UniqueImages = set.UniqueImages()
	if set.Len() == 0 {
		return stats
	}
	total := set.CoveredDuration()
	minDuration, maxDuration := 0.0, 0.0
	for i, item := range set.Items() {
		d := item.Duration()
		if i == 0 || d < minDuration {
			minDuration = d
		}
		if i == 0 || d > maxDuration {
			maxDuration = d
		}
	}
	first, _ := set.First()
	last, _ := set.Last()
	stats.TotalDuration = round(total, 2)
	stats.CoveragePercentage = round(set.CoveragePercent(episodeDuration), 2)
	stats.AverageDuration = round(total/float64(set.Len()), 2)
	stats.MinDuration = round(minDuration, 2)
	stats.MaxDuration = round(maxDuration, 2)
	stats.FirstStart = first.Start
	stats.LastEnd = last.End
	return stats
}

// sortedIndexes 按起始时间排序的下标，缺少起始时间的排在最后
func sortedIndexes(segments []Segment) []int {
	order := make([]int, len(segments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := segments[order[a]].StartTime, segments[order[b]].StartTime
		if sa == nil || sb == nil {
			return sa != nil && sb == nil
		}
		return *sa < *sb
	})
	return order
}

func issueMessages(issues []Issue) []string {
	result := make([]string, 0, len(issues))
	for _, issue := range issues {
		result = append(result, issue.Message)
	}
	return result
}

func formatSeconds(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
