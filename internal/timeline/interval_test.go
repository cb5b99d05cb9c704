package timeline

import (
	"reflect"
	"testing"
)

func TestIntervalSetFindHalfOpen(t *testing.T) {
	set := NewIntervalSet([]Segment{
		NewSegment(10, 20, "b"),
		NewSegment(0, 5, "a"),
	})
	if item, ok := set.Find(0); !ok || item.Image != "a" {
		t.Fatalf("expected a at 0, got %+v ok=%v", item, ok)
	}
	if _, ok := set.Find(5); ok {
		t.Fatalf("end boundary must be exclusive")
	}
	if _, ok := set.Find(7); ok {
		t.Fatalf("gap lookup must return none")
	}
	if item, ok := set.Find(19.5); !ok || item.Image != "b" || item.Index != 0 {
		t.Fatalf("expected b (input index 0), got %+v ok=%v", item, ok)
	}
	if _, ok := set.Find(20); ok {
		t.Fatalf("lookup past last end must return none")
	}
	if _, ok := set.Find(-1); ok {
		t.Fatalf("negative lookup must return none")
	}
}

func TestIntervalSetGapsAndOverlaps(t *testing.T) {
	set := NewIntervalSet([]Segment{
		NewSegment(0, 10, "a"),
		NewSegment(8, 20, "b"),
		NewSegment(25, 30, "c"),
	})
	overlaps := set.Overlaps()
	if len(overlaps) != 1 || overlaps[0].Left != 0 || overlaps[0].Right != 1 || overlaps[0].Amount != 2 {
		t.Fatalf("unexpected overlaps: %+v", overlaps)
	}
	gaps := set.Gaps()
	if len(gaps) != 1 || gaps[0].Amount != 5 {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}
	if got := set.CoveredDuration(); got != 27 {
		t.Fatalf("expected covered 27, got %v", got)
	}
}

func TestOptimizeMergesContiguousIdenticalImages(t *testing.T) {
	input := []Segment{
		NewSegment(0, 5, "a"),
		NewSegment(5, 10, "a"),
		NewSegment(10, 15, "b"),
	}
	got := Optimize(input)
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
	if got[0].Start() != 0 || got[0].End() != 10 || got[0].ImageURL != "a" {
		t.Fatalf("unexpected first segment: %+v", got[0])
	}
	if got[1].Start() != 10 || got[1].End() != 15 || got[1].ImageURL != "b" {
		t.Fatalf("unexpected second segment: %+v", got[1])
	}
	if input[0].End() != 5 {
		t.Fatalf("optimize must not mutate input")
	}
}

func TestOptimizeKeepsGapSeparatedSegments(t *testing.T) {
	got := Optimize([]Segment{
		NewSegment(0, 5, "a"),
		NewSegment(6, 10, "a"),
	})
	if len(got) != 2 {
		t.Fatalf("1 second gap must prevent merge, got %d segments", len(got))
	}
}

func TestOptimizeIsIdempotent(t *testing.T) {
	input := []Segment{
		NewSegment(20, 25, "c"),
		NewSegment(0, 5, "a"),
		NewSegment(5, 10, "a"),
		NewSegment(10, 15, "a"),
		NewSegment(15, 20, "b"),
	}
	once := Optimize(input)
	twice := Optimize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("optimize not idempotent:\nonce=%+v\ntwice=%+v", once, twice)
	}
	if NewIntervalSet(once).CoveredDuration() != NewIntervalSet(input).CoveredDuration() {
		t.Fatalf("optimize must preserve coverage")
	}
}

func TestOptimizeMergedSegmentKeepsLeadingMetadata(t *testing.T) {
	first := NewSegment(0, 5, "a")
	firstActor := uint(3)
	first.VoiceActorID = &firstActor
	first.TransitionType = "cut"
	first.SceneDescription = "opening"

	second := NewSegment(5, 10, "a")
	secondActor := uint(9)
	second.VoiceActorID = &secondActor
	second.TransitionType = "zoom"
	second.SceneDescription = "close-up"
	second.IsKeyFrame = true

	got := Optimize([]Segment{second, first})
	if len(got) != 1 {
		t.Fatalf("expected single merged segment, got %d", len(got))
	}
	merged := got[0]
	if merged.VoiceActorID == nil || *merged.VoiceActorID != 3 {
		t.Fatalf("merged segment should keep leading voice actor, got %v", merged.VoiceActorID)
	}
	if merged.TransitionType != "cut" || merged.SceneDescription != "opening" {
		t.Fatalf("merged segment should keep leading transition and scene, got %+v", merged)
	}
	if !merged.IsKeyFrame {
		t.Fatalf("key frame flag should survive the merge")
	}
	if merged.End() != 10 {
		t.Fatalf("merged end want 10 got %v", merged.End())
	}
}
