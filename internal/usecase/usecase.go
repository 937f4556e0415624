package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/reelcut/internal/domain/script"
	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/workarea"
)

type Stage string

const (
	StageValidate  Stage = "validate"
	StageWorkarea  Stage = "workarea"
	StageFetch     Stage = "fetch"
	StageProbe     Stage = "probe"
	StageSubtitles Stage = "subtitles"
	StageRender    Stage = "render"
	StageConcat    Stage = "concat"
	StageNarration Stage = "narration"
	StageMix       Stage = "mix"
	StagePublish   Stage = "publish"
	StagePersist   Stage = "persist"
	StageUpload    Stage = "upload"
)

// StageError is the single failure a call returns. Err keeps the cause for
// logs; callers show users a generic message.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

type Deps struct {
	Media   ports.MediaTool
	Fetcher ports.Fetcher
	Store   ports.ObjectStore
	// Videos is optional; without it nothing is persisted.
	Videos   ports.VideoRepository
	Uploader ports.Uploader
	Log      zerolog.Logger
	Now      func() time.Time
}

type Options struct {
	WorkRoot string
	// MotionPolicy overrides the per-videoType default when set.
	MotionPolicy timeline.MotionPolicy
	MotionPreset types.MotionPreset
	MotionSeed   int64
	MusicVolume  float64
	NoTransition bool
	// AllowInsecureAssets accepts plain http asset URLs.
	AllowInsecureAssets bool
}

const (
	defaultMusicVolume = 0.2
	persistTimeout     = 10 * time.Second
)

type Usecase struct {
	d Deps
	o Options
}

func New(d Deps, o Options) Usecase {
	if d.Now == nil {
		d.Now = time.Now
	}
	if o.MusicVolume <= 0 {
		o.MusicVolume = defaultMusicVolume
	}
	return Usecase{d: d, o: o}
}

// Finalize renders the request's assets into one video, publishes it and
// returns its public URL. It either yields a complete artifact or an error;
// the working area is removed in both cases.
func (u Usecase) Finalize(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error) {
	log := u.d.Log.With().
		Str("video_id", req.VideoID).
		Str("video_type", string(req.VideoType)).
		Str("status", string(req.Status)).
		Logger()

	if err := req.Validate(u.o.AllowInsecureAssets); err != nil {
		return types.FinalizeResult{}, stageErr(StageValidate, err)
	}

	start := u.d.Now()
	var res types.FinalizeResult
	err := workarea.Run(ctx, u.o.WorkRoot, log, func(ctx context.Context, area *workarea.Area) error {
		var err error
		res, err = u.finalize(ctx, req, area, log)
		return err
	})
	if err != nil {
		err = stageErr(StageWorkarea, err)
		log.Error().Err(err).Dur("took", u.d.Now().Sub(start)).Msg("finalize failed")
		u.markFailed(ctx, req.VideoID, err, log)
		return types.FinalizeResult{}, err
	}

	log.Info().Str("video_url", res.VideoURL).Dur("took", u.d.Now().Sub(start)).Msg("finalize done")
	return res, nil
}

type assets struct {
	images     []string
	voiceovers []string
	music      string
}

func (u Usecase) finalize(ctx context.Context, req types.FinalizeRequest, area *workarea.Area, log zerolog.Logger) (types.FinalizeResult, error) {
	mode := req.Mode()
	clean := script.Resolve(req)
	log = log.With().Str("mode", string(mode)).Logger()

	in, err := u.fetch(ctx, req, area.Dir())
	if err != nil {
		return types.FinalizeResult{}, stageErr(StageFetch, err)
	}
	log.Info().Int("images", len(in.images)).Int("voiceovers", len(in.voiceovers)).Bool("music", in.music != "").Msg("assets fetched")

	plan := timeline.PlanInput{
		Images: in.images,
		Motion: u.motion(req.VideoType),
	}
	var narration time.Duration
	withBridges := !u.o.NoTransition
	switch mode {
	case types.ModePerSegment:
		durations, err := u.probeAll(ctx, in.voiceovers)
		if err != nil {
			return types.FinalizeResult{}, stageErr(StageProbe, err)
		}
		plan.Voiceovers = in.voiceovers
		plan.Durations = durations
		plan.Captions = subtitles.AlignSections(subtitles.SplitSections(clean), len(in.images))
		for _, d := range durations {
			plan.Total += d
		}
		narration = plan.Total
	default:
		total, err := u.d.Media.ProbeDuration(ctx, in.voiceovers[0])
		if err != nil {
			return types.FinalizeResult{}, stageErr(StageProbe, err)
		}
		narration = total
		plan.Total = total
		if withBridges {
			// Transitions are carved out of the narration so pictures and
			// voice end together.
			var bridges int
			plan.Total, bridges = timeline.BridgeBudget(total, len(in.images))
			withBridges = bridges > 0
		}
	}
	segs := timeline.Plan(plan)
	log.Info().
		Int("segments", len(segs)).
		Dur("narration", narration).
		Dur("visual", timeline.TotalDuration(segs)).
		Msg("timeline planned")

	style := subtitles.Style(req.VideoType)
	if mode == types.ModePerSegment {
		if err := writeSegmentSubtitles(segs, area); err != nil {
			return types.FinalizeResult{}, stageErr(StageSubtitles, err)
		}
	}

	rendered := make([]string, len(segs))
	for i, s := range segs {
		out := area.Path(fmt.Sprintf("segment_%d.mp4", i))
		err := u.d.Media.RenderSegment(ctx, ports.SegmentJob{
			Image:     s.Image,
			Voiceover: s.Voiceover,
			Subtitles: s.Subtitles,
			Style:     style,
			Motion:    s.Motion,
			Frames:    s.Frames,
			Out:       out,
		})
		if err != nil {
			return types.FinalizeResult{}, stageErr(StageRender, fmt.Errorf("segment %d: %w", i, err))
		}
		rendered[i] = out
	}

	var bridges []string
	if withBridges {
		bridges, err = u.transitions(ctx, rendered, mode == types.ModePerSegment, area, log)
		if err != nil {
			return types.FinalizeResult{}, stageErr(StageRender, err)
		}
	}

	track := area.Path("track.mp4")
	playlist := timeline.Playlist(rendered, bridges)
	if err := u.d.Media.Concat(ctx, playlist, area.Path("concat.txt"), track); err != nil {
		return types.FinalizeResult{}, stageErr(StageConcat, err)
	}
	trackDuration := timeline.TotalDuration(segs) + time.Duration(timeline.CountBridges(bridges))*timeline.TransitionDuration

	if mode == types.ModeWholeTrack {
		captions := area.Path("captions.srt")
		srt := subtitles.RenderSRT(subtitles.WordCues(clean, narration))
		if err := os.WriteFile(captions, []byte(srt), 0o644); err != nil {
			return types.FinalizeResult{}, stageErr(StageSubtitles, err)
		}
		narrated := area.Path("narrated.mp4")
		err := u.d.Media.ApplyNarration(ctx, ports.NarrationJob{
			Video:     track,
			Narration: in.voiceovers[0],
			Subtitles: captions,
			Style:     style,
			Duration:  narration,
			Out:       narrated,
		})
		if err != nil {
			return types.FinalizeResult{}, stageErr(StageNarration, err)
		}
		track = narrated
		trackDuration = narration
	}

	final := area.Path("final.mp4")
	if in.music != "" {
		err = u.d.Media.MixMusic(ctx, ports.MixJob{
			Video:    track,
			Music:    in.music,
			Volume:   u.o.MusicVolume,
			Duration: trackDuration,
			Out:      final,
		})
	} else {
		err = copyFile(track, final)
	}
	if err != nil {
		return types.FinalizeResult{}, stageErr(StageMix, err)
	}

	key := ObjectKey(u.d.Now())
	videoURL, err := u.d.Store.Put(ctx, key, final, "video/mp4")
	if err != nil {
		return types.FinalizeResult{}, stageErr(StagePublish, err)
	}
	log.Info().Str("key", key).Msg("artifact published")

	if req.Status == types.StatusCompleted && req.VideoID != "" && u.d.Videos != nil {
		if err := u.d.Videos.MarkCompleted(ctx, req.VideoID, videoURL); err != nil {
			return types.FinalizeResult{}, stageErr(StagePersist, err)
		}
	}

	return types.FinalizeResult{
		VideoURL:    videoURL,
		CleanScript: clean,
		VideoType:   string(req.VideoType),
	}, nil
}

// fetch downloads every asset family concurrently into dir.
func (u Usecase) fetch(ctx context.Context, req types.FinalizeRequest, dir string) (assets, error) {
	var out assets
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := u.d.Fetcher.Fetch(gctx, ports.AssetImage, req.Images, dir)
		out.images = p
		return err
	})
	g.Go(func() error {
		p, err := u.d.Fetcher.Fetch(gctx, ports.AssetVoiceover, req.Voiceovers, dir)
		out.voiceovers = p
		return err
	})
	if req.Music != "" {
		g.Go(func() error {
			p, err := u.d.Fetcher.Fetch(gctx, ports.AssetMusic, []string{req.Music}, dir)
			if len(p) == 1 {
				out.music = p[0]
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return assets{}, err
	}
	if len(out.images) != len(req.Images) || len(out.voiceovers) != len(req.Voiceovers) {
		return assets{}, errors.New("fetcher returned an incomplete batch")
	}
	return out, nil
}

func (u Usecase) probeAll(ctx context.Context, paths []string) ([]time.Duration, error) {
	out := make([]time.Duration, len(paths))
	for i, p := range paths {
		d, err := u.d.Media.ProbeDuration(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("voiceover %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

func (u Usecase) motion(vt types.VideoType) func(int) types.MotionPreset {
	policy := u.o.MotionPolicy
	if policy == "" {
		policy = timeline.DefaultMotionPolicy(vt)
	}
	return timeline.MotionPicker(policy, u.o.MotionPreset, u.o.MotionSeed)
}

// transitions builds a cross-fade between each pair of adjacent segments. A
// failed transition leaves an empty entry and the pair is joined directly;
// only cancellation aborts.
func (u Usecase) transitions(ctx context.Context, segments []string, audio bool, area *workarea.Area, log zerolog.Logger) ([]string, error) {
	if len(segments) < 2 {
		return nil, nil
	}
	bridges := make([]string, len(segments)-1)
	for i := range bridges {
		last := area.Path(fmt.Sprintf("last_%d.png", i))
		first := area.Path(fmt.Sprintf("first_%d.png", i+1))
		out := area.Path(fmt.Sprintf("transition_%d.mp4", i))

		err := u.d.Media.ExtractFrame(ctx, segments[i], true, last)
		if err == nil {
			err = u.d.Media.ExtractFrame(ctx, segments[i+1], false, first)
		}
		if err == nil {
			err = u.d.Media.RenderTransition(ctx, ports.TransitionJob{
				From:     last,
				To:       first,
				Duration: timeline.TransitionDuration,
				Audio:    audio,
				Out:      out,
			})
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn().Err(err).Int("transition", i).Msg("transition skipped")
			continue
		}
		bridges[i] = out
	}
	return bridges, nil
}

func writeSegmentSubtitles(segs []types.Segment, area *workarea.Area) error {
	for i := range segs {
		if strings.TrimSpace(segs[i].Caption) == "" {
			continue
		}
		cues := subtitles.SectionCues([]string{segs[i].Caption}, []time.Duration{segs[i].Duration})
		p := area.Path(fmt.Sprintf("segment_%d.srt", i))
		if err := os.WriteFile(p, []byte(subtitles.RenderSRT(cues)), 0o644); err != nil {
			return err
		}
		segs[i].Subtitles = p
	}
	return nil
}

// markFailed records the failure on the video row. It runs even when ctx is
// already done and its own error is only logged.
func (u Usecase) markFailed(ctx context.Context, videoID string, cause error, log zerolog.Logger) {
	if videoID == "" || u.d.Videos == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := u.d.Videos.MarkFailed(ctx, videoID, cause.Error()); err != nil {
		log.Warn().Err(err).Msg("mark failed")
	}
}

// ObjectKey names a published artifact: videos/<unix millis>-<8 random chars>.mp4.
func ObjectKey(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("videos/%d-%s.mp4", now.UnixMilli(), id[:8])
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
