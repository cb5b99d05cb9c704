package timeline

import "sort"

// Interval 区间视图，Index 指向原始输入下标
type Interval struct {
	Index int
	Start float64
	End   float64
	Image string
}

// Duration 区间时长
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// Pair 相邻区间对（按起始时间排序后的相邻关系）
type Pair struct {
	Left   int     // 左侧片段的原始下标
	Right  int     // 右侧片段的原始下标
	Amount float64 // 重叠量或间隔量（秒）
}

// IntervalSet 按起始时间排序的只读区间集合
// 只收录起止时间齐全的片段。
type IntervalSet struct {
	items []Interval
}

// NewIntervalSet 从片段构建区间集合（起始时间相同时保持输入顺序）
func NewIntervalSet(segments []Segment) *IntervalSet {
	items := make([]Interval, 0, len(segments))
	for i, seg := range segments {
		if !seg.HasTimes() {
			continue
		}
		items = append(items, Interval{
			Index: i,
			Start: seg.Start(),
			End:   seg.End(),
			Image: normalizeImageURL(seg.ImageURL),
		})
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Start < items[b].Start
	})
	return &IntervalSet{items: items}
}

// Len 区间数量
func (s *IntervalSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items 返回排序后的区间副本
func (s *IntervalSet) Items() []Interval {
	if s == nil {
		return nil
	}
	out := make([]Interval, len(s.items))
	copy(out, s.items)
	return out
}

// First 第一个区间
func (s *IntervalSet) First() (Interval, bool) {
	if s.Len() == 0 {
		return Interval{}, false
	}
	return s.items[0], true
}

// Last 最后一个区间
func (s *IntervalSet) Last() (Interval, bool) {
	if s.Len() == 0 {
		return Interval{}, false
	}
	return s.items[len(s.items)-1], true
}

// Overlaps 相邻区间重叠检测：end[i] > start[i+1]
func (s *IntervalSet) Overlaps() []Pair {
	var pairs []Pair
	for i := 0; i+1 < s.Len(); i++ {
		cur, next := s.items[i], s.items[i+1]
		if cur.End > next.Start {
			pairs = append(pairs, Pair{Left: cur.Index, Right: next.Index, Amount: cur.End - next.Start})
		}
	}
	return pairs
}

// Gaps 相邻区间之间的空白：start[i+1] - end[i] > 0
func (s *IntervalSet) Gaps() []Pair {
	var pairs []Pair
	for i := 0; i+1 < s.Len(); i++ {
		cur, next := s.items[i], s.items[i+1]
		if gap := next.Start - cur.End; gap > 0 {
			pairs = append(pairs, Pair{Left: cur.Index, Right: next.Index, Amount: gap})
		}
	}
	return pairs
}

// CoveredDuration 各区间时长之和
func (s *IntervalSet) CoveredDuration() float64 {
	total := 0.0
	for i := 0; i < s.Len(); i++ {
		total += s.items[i].Duration()
	}
	return total
}

// CoveragePercent 覆盖率（百分比，未取整）
func (s *IntervalSet) CoveragePercent(total float64) float64 {
	if total <= 0 {
		return 0
	}
	return s.CoveredDuration() / total * 100
}

// UniqueImages 不同图片地址数量
func (s *IntervalSet) UniqueImages() int {
	seen := make(map[string]struct{}, s.Len())
	for i := 0; i < s.Len(); i++ {
		if s.items[i].Image == "" {
			continue
		}
		seen[s.items[i].Image] = struct{}{}
	}
	return len(seen)
}

// Find 查找包含时间点 t 的区间（[start, end)），落在空白处返回 false
func (s *IntervalSet) Find(t float64) (Interval, bool) {
	n := s.Len()
	if n == 0 {
		return Interval{}, false
	}
	// 最后一个 start <= t 的区间
	pos := sort.Search(n, func(i int) bool {
		return s.items[i].Start > t
	}) - 1
	if pos < 0 {
		return Interval{}, false
	}
	item := s.items[pos]
	if t >= item.Start && t < item.End {
		return item, true
	}
	return Interval{}, false
}
