package timeline

import (
	"fmt"
	"math/rand"

	"github.com/forPelevin/reelcut/internal/types"
)

type MotionPolicy string

const (
	MotionFixed  MotionPolicy = "fixed"
	MotionCycle  MotionPolicy = "cycle"
	MotionRandom MotionPolicy = "random"
)

const maxZoom = 1.2

// MotionPicker returns the preset for segment i. Random picks come from a
// seeded source so a given seed always yields the same sequence.
func MotionPicker(policy MotionPolicy, fixed types.MotionPreset, seed int64) func(i int) types.MotionPreset {
	if fixed == "" {
		fixed = types.MotionZoomIn
	}
	switch policy {
	case MotionCycle:
		return func(i int) types.MotionPreset {
			return types.MotionPresets[i%len(types.MotionPresets)]
		}
	case MotionRandom:
		picks := map[int]types.MotionPreset{}
		rng := rand.New(rand.NewSource(seed))
		next := 0
		return func(i int) types.MotionPreset {
			for next <= i {
				picks[next] = types.MotionPresets[rng.Intn(len(types.MotionPresets))]
				next++
			}
			return picks[i]
		}
	default:
		return func(int) types.MotionPreset { return fixed }
	}
}

// DefaultMotionPolicy is the policy used when none is configured.
func DefaultMotionPolicy(vt types.VideoType) MotionPolicy {
	if vt == types.VideoShorts {
		return MotionFixed
	}
	return MotionCycle
}

// MotionExpr returns zoompan z, x and y expressions for preset. They depend
// only on the output frame number `on` and the total frame count.
func MotionExpr(preset types.MotionPreset, frames int) (z, x, y string) {
	last := frames - 1
	if last < 1 {
		last = 1
	}
	const (
		centerX = "iw/2-(iw/zoom/2)"
		centerY = "ih/2-(ih/zoom/2)"
	)
	step := maxZoom - 1
	switch preset {
	case types.MotionZoomOut:
		return fmt.Sprintf("%.3f-%.3f*on/%d", maxZoom, step, last), centerX, centerY
	case types.MotionPanUp:
		return fmt.Sprintf("%.3f", maxZoom), centerX, fmt.Sprintf("(ih-ih/zoom)*(1-on/%d)", last)
	case types.MotionPanDown:
		return fmt.Sprintf("%.3f", maxZoom), centerX, fmt.Sprintf("(ih-ih/zoom)*on/%d", last)
	case types.MotionPanLeftRight:
		return fmt.Sprintf("%.3f", maxZoom), fmt.Sprintf("(iw-iw/zoom)*on/%d", last), centerY
	case types.MotionPanRightLeft:
		return fmt.Sprintf("%.3f", maxZoom), fmt.Sprintf("(iw-iw/zoom)*(1-on/%d)", last), centerY
	default:
		return fmt.Sprintf("1+%.3f*on/%d", step, last), centerX, centerY
	}
}

// ParseMotion maps a configured preset name; unknown names fall back to
// zoom-in.
func ParseMotion(s string) types.MotionPreset {
	for _, p := range types.MotionPresets {
		if string(p) == s {
			return p
		}
	}
	return types.MotionZoomIn
}
