package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/reelcut/internal/ports/adapters/filestore"
	"github.com/forPelevin/reelcut/internal/ports/adapters/httpfetch"
	"github.com/forPelevin/reelcut/internal/ports/adapters/postgres"
	"github.com/forPelevin/reelcut/internal/ports/adapters/s3store"
	"github.com/forPelevin/reelcut/internal/ports/adapters/youtube"
	"github.com/forPelevin/reelcut/internal/usecase"
)

// Pipeline is the usecase wired to concrete adapters.
type Pipeline struct {
	usecase.Usecase

	Media *ffmpeg.Adapter
	// MediaDir is the directory to serve under /media when artifacts are
	// stored on the local filesystem.
	MediaDir string

	closers []func()
}

// Build wires adapters from cfg. The database and YouTube are optional: they
// are only connected when configured.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{}

	// adapters
	p.Media = ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath).WithLogger(log.With().Str("component", "ffmpeg").Logger())
	fetcher := httpfetch.New(nil, httpfetch.Options{
		Concurrency:   cfg.FetchConcurrency,
		Timeout:       cfg.FetchTimeout,
		MaxBytes:      cfg.FetchMaxBytes,
		AllowedHosts:  cfg.AssetAllowedHosts,
		AllowInsecure: cfg.AllowInsecureAssets,
	}, log.With().Str("component", "fetch").Logger())

	store, mediaDir, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.MediaDir = mediaDir

	deps := usecase.Deps{
		Media:   p.Media,
		Fetcher: fetcher,
		Store:   store,
		Log:     log,
	}

	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, pool.Close)
		deps.Videos = postgres.NewVideoRepository(pool)
		log.Info().Msg("video records enabled")
	} else {
		log.Warn().Msg("DATABASE_URL not set, video records will not be updated")
	}

	if cfg.YouTubeEnabled() {
		up, err := youtube.New(ctx, youtube.Config{
			ClientID:     cfg.YouTubeClientID,
			ClientSecret: cfg.YouTubeClientSecret,
			RefreshToken: cfg.YouTubeRefreshToken,
		}, log.With().Str("component", "youtube").Logger())
		if err != nil {
			p.Close()
			return nil, err
		}
		deps.Uploader = up
	}

	p.Usecase = usecase.New(deps, usecase.Options{
		WorkRoot:     cfg.WorkRoot,
		MotionPolicy: cfg.MotionPolicy,
		MotionPreset: cfg.MotionPreset,
		MotionSeed:   cfg.MotionSeed,
		MusicVolume:  cfg.MusicVolume,
		NoTransition: !cfg.Transitions,

		AllowInsecureAssets: cfg.AllowInsecureAssets,
	})
	return p, nil
}

// Close releases connections opened by Build.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

func newStore(ctx context.Context, cfg *config.Config) (ports.ObjectStore, string, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		fs, err := filestore.New(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, "", err
		}
		return fs, fs.BasePath(), nil
	case config.StorageS3:
		s3, err := s3store.New(ctx, s3store.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return s3, "", nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// ensure adapters implement ports
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
var _ ports.Fetcher = (*httpfetch.Adapter)(nil)
var _ ports.ObjectStore = (*s3store.Adapter)(nil)
var _ ports.ObjectStore = (*filestore.FileStore)(nil)
var _ ports.VideoRepository = (*postgres.VideoRepository)(nil)
var _ ports.Uploader = (*youtube.Adapter)(nil)
