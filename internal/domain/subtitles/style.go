package subtitles

import (
	"fmt"

	"github.com/forPelevin/reelcut/internal/types"
)

// Sizes are in libass script units; SRT input is laid out on a 288px tall
// canvas and scaled to the 1920px frame.
const (
	shortsFontSize = 18
	longFontSize   = 12
	marginBottom   = 40
)

// Style returns the force_style override burned in for videoType.
func Style(vt types.VideoType) string {
	size := longFontSize
	bold := 0
	if vt == types.VideoShorts {
		size = shortsFontSize
		bold = 1
	}
	return fmt.Sprintf(
		"FontName=Arial,FontSize=%d,Bold=%d,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,BorderStyle=1,Outline=2,Shadow=0,Alignment=2,MarginV=%d",
		size, bold, marginBottom,
	)
}
