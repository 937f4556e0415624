package subtitles

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/forPelevin/reelcut/internal/types"
)

// fallbackCueDuration bounds the single cue emitted for degenerate input.
const fallbackCueDuration = time.Second

// WordCues paces every whitespace-separated word evenly across total. Cues are
// contiguous: the first starts at zero and the last ends at total.
func WordCues(text string, total time.Duration) []types.Cue {
	words := strings.Fields(text)
	if len(words) == 0 || total <= 0 {
		return fallbackCues(text, total)
	}
	totalMs := total.Round(time.Millisecond).Milliseconds()
	n := int64(len(words))
	boundary := func(i int64) time.Duration {
		ms := int64(math.Round(float64(totalMs) * float64(i) / float64(n)))
		return time.Duration(ms) * time.Millisecond
	}
	out := make([]types.Cue, 0, len(words))
	for i, w := range words {
		out = append(out, types.Cue{
			Index: i + 1,
			Start: boundary(int64(i)),
			End:   boundary(int64(i + 1)),
			Text:  sanitizeCueText(w),
		})
	}
	return out
}

// SectionCues gives each section one cue spanning its paired duration, laid
// end to end. Sections and durations are expected to be aligned already, see
// AlignSections.
func SectionCues(sections []string, durations []time.Duration) []types.Cue {
	if len(durations) == 0 {
		return fallbackCues(strings.Join(sections, " "), 0)
	}
	out := make([]types.Cue, 0, len(durations))
	var at time.Duration
	for i, d := range durations {
		if d <= 0 {
			d = fallbackCueDuration
		}
		text := ""
		if i < len(sections) {
			text = sections[i]
		}
		out = append(out, types.Cue{
			Index: i + 1,
			Start: at,
			End:   at + d,
			Text:  sanitizeCueText(text),
		})
		at += d
	}
	return out
}

// SplitSections splits narration on blank lines. Whitespace-only sections
// are dropped.
func SplitSections(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, strings.Join(cur, "\n"))
		cur = cur[:0]
	}
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			flush()
			continue
		}
		cur = append(cur, ln)
	}
	flush()
	return out
}

// AlignSections maps sections onto n segments. Surplus sections are folded
// into the last segment and missing ones come back empty.
func AlignSections(sections []string, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i, s := range sections {
		if i < n {
			out[i] = s
			continue
		}
		out[n-1] = strings.TrimSpace(out[n-1] + "\n" + s)
	}
	return out
}

// RenderSRT renders cues as SubRip blocks.
func RenderSRT(cues []types.Cue) string {
	var b strings.Builder
	for i, c := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Text)
	}
	return b.String()
}

// FormatTimestamp formats d as HH:MM:SS,mmm rounded to the millisecond.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Round(time.Millisecond).Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func fallbackCues(text string, total time.Duration) []types.Cue {
	if total <= 0 {
		total = fallbackCueDuration
	}
	return []types.Cue{{
		Index: 1,
		Start: 0,
		End:   total,
		Text:  sanitizeCueText(strings.Join(strings.Fields(text), " ")),
	}}
}

// sanitizeCueText keeps a cue inside one SRT block: blank lines would end
// the block early and braces are read as override tags by libass.
func sanitizeCueText(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	var lines []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return strings.Join(lines, "\n")
}
