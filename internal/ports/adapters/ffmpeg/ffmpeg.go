package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/ports"
)

// outputTail bounds how much tool output a RenderError keeps.
const outputTail = 4096

// RenderError is a failed ffmpeg or ffprobe invocation.
type RenderError struct {
	Op     string
	Err    error
	Output string
}

func (e *RenderError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("ffmpeg %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ffmpeg %s: %v\n%s", e.Op, e.Err, e.Output)
}

func (e *RenderError) Unwrap() error { return e.Err }

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     zerolog.Logger
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, log: zerolog.Nop()}
}

// WithLogger makes the adapter log every invocation at debug level.
func (a *Adapter) WithLogger(l zerolog.Logger) *Adapter {
	a.log = l
	return a
}

// Available checks that both binaries can be executed.
func (a *Adapter) Available(ctx context.Context) error {
	for _, bin := range []string{a.ffmpeg, a.ffprobe} {
		if err := exec.CommandContext(ctx, bin, "-version").Run(); err != nil {
			return fmt.Errorf("%s unavailable: %w", bin, err)
		}
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, newRenderError(ctx, "probe duration", err, b)
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (a *Adapter) RenderSegment(ctx context.Context, job ports.SegmentJob) error {
	return a.run(ctx, "render segment", segmentArgs(job))
}

func (a *Adapter) ExtractFrame(ctx context.Context, video string, last bool, outPNG string) error {
	op := "extract first frame"
	if last {
		op = "extract last frame"
	}
	return a.run(ctx, op, frameArgs(video, last, outPNG))
}

func (a *Adapter) RenderTransition(ctx context.Context, job ports.TransitionJob) error {
	return a.run(ctx, "render transition", transitionArgs(job))
}

// Concat joins parts with the concat demuxer. All parts must share codec
// parameters since streams are copied.
func (a *Adapter) Concat(ctx context.Context, parts []string, listPath, out string) error {
	if len(parts) == 0 {
		return &RenderError{Op: "concat", Err: errors.New("no parts")}
	}
	if err := os.WriteFile(listPath, []byte(concatList(parts)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return a.run(ctx, "concat", concatArgs(listPath, out))
}

func (a *Adapter) ApplyNarration(ctx context.Context, job ports.NarrationJob) error {
	return a.run(ctx, "apply narration", narrationArgs(job))
}

func (a *Adapter) MixMusic(ctx context.Context, job ports.MixJob) error {
	return a.run(ctx, "mix music", mixArgs(job))
}

func (a *Adapter) run(ctx context.Context, op string, args []string) error {
	a.log.Debug().Str("op", op).Strs("args", args).Msg("ffmpeg")
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return newRenderError(ctx, op, err, b)
	}
	return nil
}

func newRenderError(ctx context.Context, op string, err error, out []byte) *RenderError {
	// A killed process reports "signal: killed"; surface the context error
	// so callers can tell a deadline from a bad input.
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	s := strings.TrimSpace(string(out))
	if len(s) > outputTail {
		s = s[len(s)-outputTail:]
	}
	return &RenderError{Op: op, Err: err, Output: s}
}

// encodeArgs are shared by every clip that ends up in the concat list so
// stream copy stays valid.
func encodeArgs() []string {
	return []string{
		"-c:v", "libx264",
		"-profile:v", "high",
		"-preset", "veryfast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(timeline.FPS),
		"-video_track_timescale", "15360",
	}
}

func audioArgs() []string {
	return []string{
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		"-ac", "2",
	}
}

func segmentArgs(job ports.SegmentJob) []string {
	frames := job.Frames
	if frames < 1 {
		frames = 1
	}
	z, x, y := timeline.MotionExpr(job.Motion, frames)
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
			"zoompan=z='%s':x='%s':y='%s':d=1:s=%dx%d:fps=%d,setsar=1,format=yuv420p",
		timeline.Width*2, timeline.Height*2, timeline.Width*2, timeline.Height*2,
		z, x, y, timeline.Width, timeline.Height, timeline.FPS,
	)
	if job.Subtitles != "" {
		vf += "," + subtitlesFilter(job.Subtitles, job.Style)
	}

	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", strconv.Itoa(timeline.FPS),
		"-i", job.Image,
	}
	if job.Voiceover != "" {
		args = append(args, "-i", job.Voiceover)
	}
	args = append(args, "-vf", vf, "-map", "0:v:0")
	if job.Voiceover != "" {
		args = append(args, "-map", "1:a:0", "-af", "apad")
	}
	args = append(args, encodeArgs()...)
	if job.Voiceover != "" {
		args = append(args, audioArgs()...)
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-frames:v", strconv.Itoa(frames),
		"-t", fmtSeconds(timeline.FrameDuration(frames, timeline.FPS)),
		"-movflags", "+faststart",
		job.Out,
	)
	return args
}

func frameArgs(video string, last bool, outPNG string) []string {
	if last {
		return []string{
			"-y",
			"-sseof", "-0.5",
			"-i", video,
			"-update", "1",
			"-q:v", "2",
			outPNG,
		}
	}
	return []string{
		"-y",
		"-i", video,
		"-frames:v", "1",
		"-q:v", "2",
		outPNG,
	}
}

func transitionArgs(job ports.TransitionJob) []string {
	d := job.Duration
	if d <= 0 {
		d = timeline.TransitionDuration
	}
	sec := fmtSeconds(d)
	frames := int(d.Seconds()*timeline.FPS + 0.5)
	if frames < 1 {
		frames = 1
	}
	fit := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d",
		timeline.Width, timeline.Height, timeline.Width, timeline.Height, timeline.FPS)
	filter := fmt.Sprintf(
		"[0:v]%s[a];[1:v]%s[b];[a][b]xfade=transition=fade:duration=%s:offset=0,format=yuv420p[v]",
		fit, fit, sec,
	)

	args := []string{
		"-y",
		"-loop", "1", "-framerate", strconv.Itoa(timeline.FPS), "-t", sec, "-i", job.From,
		"-loop", "1", "-framerate", strconv.Itoa(timeline.FPS), "-t", sec, "-i", job.To,
	}
	if job.Audio {
		args = append(args,
			"-f", "lavfi",
			"-t", sec,
			"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		)
	}
	args = append(args, "-filter_complex", filter, "-map", "[v]")
	if job.Audio {
		args = append(args, "-map", "2:a:0")
	}
	args = append(args, encodeArgs()...)
	if job.Audio {
		args = append(args, audioArgs()...)
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-frames:v", strconv.Itoa(frames),
		"-t", sec,
		"-movflags", "+faststart",
		job.Out,
	)
	return args
}

func concatList(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func concatArgs(listPath, out string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		out,
	}
}

func narrationArgs(job ports.NarrationJob) []string {
	args := []string{
		"-y",
		"-i", job.Video,
		"-i", job.Narration,
	}
	if job.Subtitles != "" {
		vf := subtitlesFilter(job.Subtitles, job.Style)
		if job.Duration > 0 {
			// Hold the last frame if skipped transitions left the track short.
			vf = "tpad=stop_mode=clone:stop=-1," + vf
		}
		args = append(args, "-vf", vf)
	}
	args = append(args, "-map", "0:v:0", "-map", "1:a:0")
	if job.Subtitles != "" {
		args = append(args, encodeArgs()...)
	} else {
		args = append(args, "-c:v", "copy")
	}
	args = append(args, audioArgs()...)
	if job.Duration > 0 {
		args = append(args, "-t", fmtSeconds(job.Duration))
	} else {
		args = append(args, "-shortest")
	}
	args = append(args, "-movflags", "+faststart", job.Out)
	return args
}

func mixArgs(job ports.MixJob) []string {
	vol := job.Volume
	if vol <= 0 {
		vol = 0.2
	}
	music := fmt.Sprintf("[1:a]volume=%s", strconv.FormatFloat(vol, 'f', -1, 64))
	if job.Duration > 0 {
		music += ",atrim=0:" + fmtSeconds(job.Duration)
	}
	filter := music + "[m];[0:a][m]amix=inputs=2:duration=first:dropout_transition=2:normalize=0[a]"
	args := []string{
		"-y",
		"-i", job.Video,
		"-stream_loop", "-1",
		"-i", job.Music,
		"-filter_complex", filter,
		"-map", "0:v:0",
		"-map", "[a]",
		"-c:v", "copy",
	}
	args = append(args, audioArgs()...)
	args = append(args, "-movflags", "+faststart", job.Out)
	return args
}

func subtitlesFilter(path, style string) string {
	f := "subtitles=" + escapeFilterPath(path)
	if style != "" {
		f += ":force_style='" + style + "'"
	}
	return f
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
