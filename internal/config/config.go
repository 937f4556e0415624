package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/types"
)

const (
	StorageS3   = "s3"
	StorageFile = "file"
)

// Config is read from the environment, then optionally overlaid with a YAML
// tuning file.
type Config struct {
	AppEnv           string
	Port             string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	DatabaseURL string

	WorkRoot        string
	FFmpegPath      string
	FFprobePath     string
	FinalizeTimeout time.Duration

	StorageBackend     string
	S3Bucket           string
	S3Region           string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Endpoint         string
	S3PublicBaseURL    string
	StoragePath        string
	StorageBaseURL     string

	FetchConcurrency    int
	FetchTimeout        time.Duration
	FetchMaxBytes       int64
	AssetAllowedHosts   []string
	AllowInsecureAssets bool

	MotionPolicy timeline.MotionPolicy
	MotionPreset types.MotionPreset
	MotionSeed   int64
	MusicVolume  float64
	Transitions  bool

	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

// Load reads the environment. A non-empty tuningPath is applied on top.
func Load(tuningPath string) (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		WorkRoot:        getEnv("WORK_ROOT", os.TempDir()),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
		FinalizeTimeout: getEnvDuration("FINALIZE_TIMEOUT", 30*time.Minute),

		StorageBackend:     getEnv("STORAGE_BACKEND", StorageS3),
		S3Bucket:           os.Getenv("AWS_BUCKET_NAME"),
		S3Region:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
		StoragePath:        getEnv("STORAGE_PATH", "media"),
		StorageBaseURL:     os.Getenv("STORAGE_BASE_URL"),

		FetchConcurrency:    getEnvInt("FETCH_CONCURRENCY", 4),
		FetchTimeout:        getEnvDuration("FETCH_TIMEOUT", 2*time.Minute),
		FetchMaxBytes:       int64(getEnvInt("FETCH_MAX_MB", 512)) << 20,
		AssetAllowedHosts:   getEnvList("ASSET_ALLOWED_HOSTS"),
		AllowInsecureAssets: getEnvBool("ALLOW_INSECURE_ASSETS", false),

		MotionPolicy: timeline.MotionPolicy(os.Getenv("MOTION_POLICY")),
		MotionPreset: types.MotionPreset(getEnv("MOTION_PRESET", string(types.MotionZoomIn))),
		MotionSeed:   int64(getEnvInt("MOTION_SEED", 0)),
		MusicVolume:  getEnvFloat("MUSIC_VOLUME", 0.2),
		Transitions:  getEnvBool("TRANSITIONS", true),

		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken: os.Getenv("YOUTUBE_REFRESH_TOKEN"),
	}

	if cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = "http://localhost:" + cfg.Port + "/media"
	}
	// The file backend publishes plain http URLs by default; allow fetching
	// them back for upload unless configured otherwise.
	if _, set := os.LookupEnv("ALLOW_INSECURE_ASSETS"); !set &&
		cfg.StorageBackend == StorageFile && strings.HasPrefix(cfg.StorageBaseURL, "http://") {
		cfg.AllowInsecureAssets = true
	}

	if tuningPath != "" {
		if err := cfg.applyTuningFile(tuningPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.FinalizeTimeout <= 0 {
		return errors.New("FINALIZE_TIMEOUT must be > 0")
	}
	if c.FetchConcurrency <= 0 {
		return errors.New("FETCH_CONCURRENCY must be > 0")
	}
	if c.MusicVolume <= 0 || c.MusicVolume > 1 {
		return fmt.Errorf("MUSIC_VOLUME must be in (0, 1], got %v", c.MusicVolume)
	}
	switch c.MotionPolicy {
	case "", timeline.MotionFixed, timeline.MotionCycle, timeline.MotionRandom:
	default:
		return fmt.Errorf("unknown MOTION_POLICY %q", c.MotionPolicy)
	}
	if timeline.ParseMotion(string(c.MotionPreset)) != c.MotionPreset {
		return fmt.Errorf("unknown MOTION_PRESET %q", c.MotionPreset)
	}
	switch c.StorageBackend {
	case StorageS3:
		if c.S3Bucket == "" {
			return errors.New("AWS_BUCKET_NAME is required for s3 storage")
		}
	case StorageFile:
		if c.StoragePath == "" {
			return errors.New("STORAGE_PATH is required for file storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// YouTubeEnabled reports whether upload credentials are present.
func (c *Config) YouTubeEnabled() bool {
	return c.YouTubeClientID != "" && c.YouTubeClientSecret != "" && c.YouTubeRefreshToken != ""
}

// tuning holds the render knobs a YAML file may override. Unset keys keep
// the environment value.
type tuning struct {
	FinalizeTimeout   *string  `yaml:"finalize_timeout"`
	FetchConcurrency  *int     `yaml:"fetch_concurrency"`
	FetchTimeout      *string  `yaml:"fetch_timeout"`
	AssetAllowedHosts []string `yaml:"asset_allowed_hosts"`
	MotionPolicy      *string  `yaml:"motion_policy"`
	MotionPreset      *string  `yaml:"motion_preset"`
	MotionSeed        *int64   `yaml:"motion_seed"`
	MusicVolume       *float64 `yaml:"music_volume"`
	Transitions       *bool    `yaml:"transitions"`
}

func (c *Config) applyTuningFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tuning file: %w", err)
	}
	var t tuning
	if err := yaml.Unmarshal(b, &t); err != nil {
		return fmt.Errorf("parse tuning file %s: %w", path, err)
	}

	if t.FinalizeTimeout != nil {
		d, err := time.ParseDuration(*t.FinalizeTimeout)
		if err != nil {
			return fmt.Errorf("finalize_timeout: %w", err)
		}
		c.FinalizeTimeout = d
	}
	if t.FetchTimeout != nil {
		d, err := time.ParseDuration(*t.FetchTimeout)
		if err != nil {
			return fmt.Errorf("fetch_timeout: %w", err)
		}
		c.FetchTimeout = d
	}
	if t.FetchConcurrency != nil {
		c.FetchConcurrency = *t.FetchConcurrency
	}
	if len(t.AssetAllowedHosts) > 0 {
		c.AssetAllowedHosts = t.AssetAllowedHosts
	}
	if t.MotionPolicy != nil {
		c.MotionPolicy = timeline.MotionPolicy(*t.MotionPolicy)
	}
	if t.MotionPreset != nil {
		c.MotionPreset = types.MotionPreset(*t.MotionPreset)
	}
	if t.MotionSeed != nil {
		c.MotionSeed = *t.MotionSeed
	}
	if t.MusicVolume != nil {
		c.MusicVolume = *t.MusicVolume
	}
	if t.Transitions != nil {
		c.Transitions = *t.Transitions
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or bare seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
