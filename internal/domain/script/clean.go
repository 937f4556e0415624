package script

import (
	"regexp"
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

// ShortsWordLimit caps the spoken script of a shorts video.
const ShortsWordLimit = 75

var (
	reDirection = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	reHeader    = regexp.MustCompile(`(?im)^[ \t]*#*[ \t]*(scene|section|part)[ \t]+\d+[^\n]*$`)
	reSpeaker   = regexp.MustCompile(`(?im)^[ \t]*(narrator|voiceover|voice over|host)[ \t]*:[ \t]*`)
	reHeading   = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	reEmphasis  = regexp.MustCompile(`\*{1,3}|_{2,3}`)
	reSpaces    = regexp.MustCompile(`[ \t]+`)
	reBlank     = regexp.MustCompile(`\n{3,}`)
)

// Clean strips production notes from a generated script and returns only the
// words meant to be spoken. Paragraph breaks survive so the result can still
// be split into sections.
func Clean(raw string, vt types.VideoType) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = reHeader.ReplaceAllString(s, "")
	s = reDirection.ReplaceAllString(s, "")
	s = reSpeaker.ReplaceAllString(s, "")
	s = reHeading.ReplaceAllString(s, "")
	s = reEmphasis.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(reSpaces.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	s = reBlank.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if vt == types.VideoShorts {
		s = Truncate(s, ShortsWordLimit)
	}
	return s
}

// Truncate keeps at most limit words. Line structure is flattened once the
// limit cuts the text.
func Truncate(s string, limit int) string {
	words := strings.Fields(s)
	if limit <= 0 || len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ")
}

// Resolve returns the clean script to narrate: the provided one when set,
// otherwise one derived from the raw script.
func Resolve(req types.FinalizeRequest) string {
	if c := strings.TrimSpace(req.CleanScript); c != "" {
		return c
	}
	return Clean(req.Script, req.VideoType)
}
