package ports

import (
	"context"
	"time"

	"github.com/forPelevin/reelcut/internal/types"
)

// SegmentJob describes one still image rendered into a moving clip.
type SegmentJob struct {
	Image     string
	Voiceover string
	Subtitles string
	Style     string
	Motion    types.MotionPreset
	Frames    int
	Out       string
}

// TransitionJob describes the short cross-fade bridging two segments.
type TransitionJob struct {
	From     string
	To       string
	Duration time.Duration
	Audio    bool
	Out      string
}

// NarrationJob overlays a single narration track and its captions on the
// assembled video.
type NarrationJob struct {
	Video     string
	Narration string
	Subtitles string
	Style     string
	Duration  time.Duration
	Out       string
}

// MixJob lays a looped music bed under the track's existing audio.
type MixJob struct {
	Video    string
	Music    string
	Volume   float64
	Duration time.Duration
	Out      string
}

type MediaTool interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	RenderSegment(ctx context.Context, job SegmentJob) error
	ExtractFrame(ctx context.Context, video string, last bool, outPNG string) error
	RenderTransition(ctx context.Context, job TransitionJob) error
	Concat(ctx context.Context, parts []string, listPath, out string) error
	ApplyNarration(ctx context.Context, job NarrationJob) error
	MixMusic(ctx context.Context, job MixJob) error
}

// AssetKind names a family of downloaded inputs. It prefixes local file
// names and picks the fallback extension.
type AssetKind string

const (
	AssetImage     AssetKind = "image"
	AssetVoiceover AssetKind = "voiceover"
	AssetMusic     AssetKind = "music"
	AssetVideo     AssetKind = "video"
)

type Fetcher interface {
	// Fetch downloads urls into dir, preserving order. Any failure fails the
	// whole batch.
	Fetch(ctx context.Context, kind AssetKind, urls []string, dir string) ([]string, error)
}

type ObjectStore interface {
	// Put publishes the file at path under key and returns its public URL.
	Put(ctx context.Context, key, path, contentType string) (string, error)
}

type VideoRepository interface {
	MarkCompleted(ctx context.Context, videoID, videoURL string) error
	MarkFailed(ctx context.Context, videoID, reason string) error
	MarkUploaded(ctx context.Context, videoID, uploadedURL string) error
	MarkUploadFailed(ctx context.Context, videoID, reason string) error
}

// UploadMetadata is what the platform shows for an uploaded video.
type UploadMetadata struct {
	Title       string
	Description string
	Tags        []string
	VideoType   types.VideoType
	// Thumbnail is an optional local image set after the insert.
	Thumbnail string
}

type Uploader interface {
	Upload(ctx context.Context, path string, meta UploadMetadata) (videoID, url string, err error)
}
