package types

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidRequest marks request validation failures. Callers map it to a
// client error instead of the generic render failure.
var ErrInvalidRequest = errors.New("invalid finalize request")

type VideoType string

const (
	VideoShorts VideoType = "shorts"
	VideoLong   VideoType = "long"
)

type Status string

const (
	StatusPreview   Status = "preview"
	StatusCompleted Status = "completed"
)

// Mode says where narration and captions are applied.
type Mode string

const (
	// ModeWholeTrack overlays one narration and word captions on the
	// assembled track.
	ModeWholeTrack Mode = "whole-track"
	// ModePerSegment muxes one voiceover and one section caption into each
	// segment.
	ModePerSegment Mode = "per-segment"
)

type FinalizeRequest struct {
	Images      []string  `json:"images"`
	Voiceovers  []string  `json:"voiceovers"`
	Music       string    `json:"music,omitempty"`
	Script      string    `json:"script"`
	CleanScript string    `json:"cleanScript"`
	VideoType   VideoType `json:"videoType"`
	Status      Status    `json:"status"`

	// VideoID references the persisted video record, if any. It comes from
	// the route, not the body.
	VideoID string `json:"-"`
}

type FinalizeResult struct {
	VideoURL    string `json:"videoUrl"`
	CleanScript string `json:"cleanScript"`
	VideoType   string `json:"videoType"`
}

// Validate checks the request shape and asset URLs. Plain http URLs are only
// accepted when allowInsecure is set, matching what the fetcher will download.
func (r FinalizeRequest) Validate(allowInsecure bool) error {
	if len(r.Images) == 0 {
		return invalid("images are required")
	}
	if len(r.Voiceovers) == 0 {
		return invalid("voiceovers are required")
	}
	switch r.VideoType {
	case VideoShorts:
		if len(r.Voiceovers) != 1 {
			return invalid("shorts take exactly one voiceover, got %d", len(r.Voiceovers))
		}
	case VideoLong:
		if len(r.Voiceovers) != 1 && len(r.Voiceovers) != len(r.Images) {
			return invalid("long videos take one voiceover or one per image (%d), got %d", len(r.Images), len(r.Voiceovers))
		}
	default:
		return invalid("unknown videoType %q", r.VideoType)
	}
	switch r.Status {
	case StatusPreview, StatusCompleted:
	default:
		return invalid("unknown status %q", r.Status)
	}
	for i, u := range r.Images {
		if err := checkAssetURL(u, allowInsecure); err != nil {
			return invalid("images[%d]: %v", i, err)
		}
	}
	for i, u := range r.Voiceovers {
		if err := checkAssetURL(u, allowInsecure); err != nil {
			return invalid("voiceovers[%d]: %v", i, err)
		}
	}
	if r.Music != "" {
		if err := checkAssetURL(r.Music, allowInsecure); err != nil {
			return invalid("music: %v", err)
		}
	}
	return nil
}

// Mode resolves the narration policy for a validated request.
func (r FinalizeRequest) Mode() Mode {
	if r.VideoType == VideoLong && len(r.Images) > 1 && len(r.Voiceovers) == len(r.Images) {
		return ModePerSegment
	}
	return ModeWholeTrack
}

func checkAssetURL(raw string, allowInsecure bool) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("absolute URL with host is required")
	}
	if u.User != nil {
		return fmt.Errorf("userinfo is not allowed")
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return nil
	case "http":
		if !allowInsecure {
			return fmt.Errorf("https is required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

type MotionPreset string

const (
	MotionZoomIn       MotionPreset = "zoom-in"
	MotionZoomOut      MotionPreset = "zoom-out"
	MotionPanUp        MotionPreset = "pan-up"
	MotionPanDown      MotionPreset = "pan-down"
	MotionPanLeftRight MotionPreset = "pan-left-right"
	MotionPanRightLeft MotionPreset = "pan-right-left"
)

// MotionPresets lists every preset in cycle order.
var MotionPresets = []MotionPreset{
	MotionZoomIn,
	MotionZoomOut,
	MotionPanUp,
	MotionPanDown,
	MotionPanLeftRight,
	MotionPanRightLeft,
}

// Segment is one still image and its slice of the narration.
type Segment struct {
	Index     int
	Image     string
	Voiceover string
	Caption   string
	Subtitles string
	Motion    MotionPreset
	Frames    int
	Duration  time.Duration
}

type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// UploadRequest publishes a finalized artifact to YouTube.
type UploadRequest struct {
	VideoURL    string    `json:"videoUrl"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	VideoType   VideoType `json:"videoType"`

	VideoID string `json:"-"`
}

type UploadResult struct {
	YouTubeID  string `json:"youtubeId"`
	YouTubeURL string `json:"youtubeUrl"`
}

func (r UploadRequest) Validate(allowInsecure bool) error {
	if err := checkAssetURL(r.VideoURL, allowInsecure); err != nil {
		return invalid("videoUrl: %v", err)
	}
	if r.Thumbnail != "" {
		if err := checkAssetURL(r.Thumbnail, allowInsecure); err != nil {
			return invalid("thumbnail: %v", err)
		}
	}
	if r.Title == "" {
		return invalid("title is required")
	}
	switch r.VideoType {
	case VideoShorts, VideoLong, "":
	default:
		return invalid("unknown videoType %q", r.VideoType)
	}
	return nil
}
