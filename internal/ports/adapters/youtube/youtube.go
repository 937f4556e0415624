package youtube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

const (
	// categoryPeopleBlogs is YouTube's "People & Blogs" category.
	categoryPeopleBlogs = "22"
	maxTitleLen         = 100
	shortsTag           = "#shorts"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "" {
		return errors.New("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN are required")
	}
	return nil
}

type Adapter struct {
	svc *yt.Service
	log zerolog.Logger
}

// New authenticates with a long-lived refresh token; access tokens are
// refreshed by the oauth2 transport as needed.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope, yt.YoutubeScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return newWithOptions(ctx, log, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
}

func newWithOptions(ctx context.Context, log zerolog.Logger, opts ...option.ClientOption) (*Adapter, error) {
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Adapter{svc: svc, log: log}, nil
}

// Upload inserts the video as private in a single call.
func (a *Adapter) Upload(ctx context.Context, path string, meta ports.UploadMetadata) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       Title(meta.Title, meta.VideoType),
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  categoryPeopleBlogs,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           "private",
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	uploaded, err := a.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}
	if uploaded.Id == "" {
		return "", "", errors.New("youtube upload: empty video id")
	}

	if meta.Thumbnail != "" {
		if err := a.setThumbnail(ctx, uploaded.Id, meta.Thumbnail); err != nil {
			a.log.Warn().Err(err).Str("youtube_id", uploaded.Id).Msg("thumbnail not set")
		}
	}
	return uploaded.Id, WatchURL(uploaded.Id), nil
}

func (a *Adapter) setThumbnail(ctx context.Context, videoID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = a.svc.Thumbnails.Set(videoID).Media(f).Context(ctx).Do()
	return err
}

// Title clamps the title to the platform limit and tags shorts so they are
// classified as such.
func Title(title string, vt types.VideoType) string {
	title = strings.TrimSpace(title)
	if vt == types.VideoShorts && !strings.Contains(strings.ToLower(title), shortsTag) {
		limit := maxTitleLen - len(shortsTag) - 1
		title = clamp(title, limit) + " " + shortsTag
	}
	return clamp(strings.TrimSpace(title), maxTitleLen)
}

func clamp(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func WatchURL(id string) string {
	return "https://youtube.com/watch?v=" + id
}
