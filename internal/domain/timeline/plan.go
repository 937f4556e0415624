package timeline

import (
	"math"
	"time"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	FPS    = 30
	Width  = 1080
	Height = 1920

	TransitionDuration = 500 * time.Millisecond
)

// EvenSplit divides total across n slices.
func EvenSplit(total time.Duration, n int) []time.Duration {
	if n <= 0 {
		return nil
	}
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = total / time.Duration(n)
	}
	return out
}

// SplitFrames converts slice durations to frame counts by rounding the
// running total, so the sum of frames never drifts more than one frame from
// the sum of durations. Every slice gets at least one frame.
func SplitFrames(durations []time.Duration, fps int) []int {
	out := make([]int, len(durations))
	var cum time.Duration
	prev := 0
	for i, d := range durations {
		if d > 0 {
			cum += d
		}
		edge := int(math.Round(cum.Seconds() * float64(fps)))
		n := edge - prev
		if n < 1 {
			n = 1
		}
		out[i] = n
		prev += n
	}
	return out
}

// FrameDuration is the playback length of frames at fps.
func FrameDuration(frames, fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(fps)
}

// PlanInput carries the localized assets for one finalize call. Voiceovers
// and Durations are either empty (whole-track) or aligned with Images.
type PlanInput struct {
	Images     []string
	Voiceovers []string
	Durations  []time.Duration
	Captions   []string
	Total      time.Duration
	Motion     func(i int) types.MotionPreset
}

// Plan builds one segment per image, in image order.
func Plan(in PlanInput) []types.Segment {
	durations := in.Durations
	if len(durations) != len(in.Images) {
		durations = EvenSplit(in.Total, len(in.Images))
	}
	frames := SplitFrames(durations, FPS)

	out := make([]types.Segment, len(in.Images))
	for i, img := range in.Images {
		seg := types.Segment{
			Index:    i,
			Image:    img,
			Frames:   frames[i],
			Duration: FrameDuration(frames[i], FPS),
			Motion:   types.MotionZoomIn,
		}
		if i < len(in.Voiceovers) && len(in.Voiceovers) == len(in.Images) {
			seg.Voiceover = in.Voiceovers[i]
		}
		if i < len(in.Captions) {
			seg.Caption = in.Captions[i]
		}
		if in.Motion != nil {
			seg.Motion = in.Motion(i)
		}
		out[i] = seg
	}
	return out
}

// BridgeBudget splits a narration of length total between n segments and the
// transitions joining them, so segments plus bridges add up to total. It
// returns the time left for segments and the number of bridges. Bridges are
// dropped when a segment would end up shorter than one transition.
func BridgeBudget(total time.Duration, n int) (segments time.Duration, bridges int) {
	if n < 2 {
		return total, 0
	}
	bridges = n - 1
	segments = total - time.Duration(bridges)*TransitionDuration
	if segments < time.Duration(n)*TransitionDuration {
		return total, 0
	}
	return segments, bridges
}

// TotalDuration sums segment durations.
func TotalDuration(segs []types.Segment) time.Duration {
	var d time.Duration
	for _, s := range segs {
		d += s.Duration
	}
	return d
}
