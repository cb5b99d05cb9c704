package timeline

import (
	"math"
	"strings"
)

// Segment 时间轴片段（一张图片对应一个 [start, end) 区间）
// StartTime/EndTime 使用指针，以便区分"未提供"与"为 0"。
type Segment struct {
	StartTime        *float64 `json:"start_time"`
	EndTime          *float64 `json:"end_time"`
	ImageURL         string   `json:"image_url"`
	VoiceActorID     *uint    `json:"voice_actor_id,omitempty"`
	SceneDescription string   `json:"scene_description,omitempty"`
	TransitionType   string   `json:"transition_type,omitempty"`
	IsKeyFrame       bool     `json:"is_key_frame"`
	Order            int      `json:"order,omitempty"`
}

// NewSegment 构造必填字段齐全的片段
func NewSegment(start, end float64, imageURL string) Segment {
	return Segment{
		StartTime: floatPtr(start),
		EndTime:   floatPtr(end),
		ImageURL:  imageURL,
	}
}

// HasTimes 起止时间是否都已提供
func (s Segment) HasTimes() bool {
	return s.StartTime != nil && s.EndTime != nil
}

// Start 起始秒数，未提供时为 0
func (s Segment) Start() float64 {
	if s.StartTime == nil {
		return 0
	}
	return *s.StartTime
}

// End 结束秒数，未提供时为 0
func (s Segment) End() float64 {
	if s.EndTime == nil {
		return 0
	}
	return *s.EndTime
}

// Duration 片段时长
func (s Segment) Duration() float64 {
	return s.End() - s.Start()
}

// Contains 判断时间点是否落在 [start, end) 内
func (s Segment) Contains(t float64) bool {
	if !s.HasTimes() {
		return false
	}
	return t >= s.Start() && t < s.End()
}

// Clone 深拷贝，避免共享时间指针
func (s Segment) Clone() Segment {
	out := s
	if s.StartTime != nil {
		out.StartTime = floatPtr(*s.StartTime)
	}
	if s.EndTime != nil {
		out.EndTime = floatPtr(*s.EndTime)
	}
	if s.VoiceActorID != nil {
		id := *s.VoiceActorID
		out.VoiceActorID = &id
	}
	return out
}

func normalizeImageURL(raw string) string {
	return strings.TrimSpace(raw)
}

func floatPtr(v float64) *float64 {
	return &v
}

func round(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
