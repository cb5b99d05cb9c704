package timeline

import "sort"

// Optimize 合并首尾相接且图片相同的相邻片段，返回新的片段列表
// 仅当 end[prev] == start[cur] 时合并，哪怕相隔 1 秒也不合并。
// 合并后的片段沿用前一段的配音演员、转场类型与场景描述，后一段的这些字段被舍弃；
// 关键帧标记取两者之或。
// 缺少起止时间的片段会被丢弃；结果的 Order 按位置从 1 重新编号。
func Optimize(segments []Segment) []Segment {
	sorted := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if !seg.HasTimes() {
			continue
		}
		sorted = append(sorted, seg.Clone())
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Start() < sorted[b].Start()
	})

	merged := make([]Segment, 0, len(sorted))
	for _, seg := range sorted {
		if n := len(merged); n > 0 {
			prev := &merged[n-1]
			if normalizeImageURL(prev.ImageURL) == normalizeImageURL(seg.ImageURL) && prev.End() == seg.Start() {
				prev.EndTime = floatPtr(seg.End())
				prev.IsKeyFrame = prev.IsKeyFrame || seg.IsKeyFrame
				continue
			}
		}
		merged = append(merged, seg)
	}
	for i := range merged {
		merged[i].Order = i + 1
	}
	return merged
}
