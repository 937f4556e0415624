package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/reelcut/internal/domain/timeline"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FINALIZE_TIMEOUT", "")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("MUSIC_VOLUME", "")
	t.Setenv("TRANSITIONS", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FinalizeTimeout != 30*time.Minute {
		t.Fatalf("FinalizeTimeout = %s", cfg.FinalizeTimeout)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/media" {
		t.Fatalf("StorageBaseURL = %q", cfg.StorageBaseURL)
	}
	if cfg.MusicVolume != 0.2 || !cfg.Transitions {
		t.Fatalf("unexpected render defaults %+v", cfg)
	}
}

func TestLoad_StorageBaseURLInheritsPort(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:1919/media" {
		t.Fatalf("StorageBaseURL = %q", cfg.StorageBaseURL)
	}
}

func TestLoad_FileStorageAllowsItsOwnURLs(t *testing.T) {
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("ALLOW_INSECURE_ASSETS", "")
	os.Unsetenv("ALLOW_INSECURE_ASSETS")

	t.Setenv("STORAGE_BACKEND", StorageS3)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.AllowInsecureAssets {
		t.Fatalf("s3 storage must keep https-only assets")
	}

	t.Setenv("STORAGE_BACKEND", StorageFile)
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.AllowInsecureAssets {
		t.Fatalf("file storage on %s must accept its own http URLs", cfg.StorageBaseURL)
	}

	t.Setenv("ALLOW_INSECURE_ASSETS", "false")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.AllowInsecureAssets {
		t.Fatalf("explicit ALLOW_INSECURE_ASSETS=false must win")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FINALIZE_TIMEOUT", "600")
	t.Setenv("FETCH_TIMEOUT", "45s")
	t.Setenv("ASSET_ALLOWED_HOSTS", " cdn.example.com , ,assets.example.com")
	t.Setenv("ALLOW_INSECURE_ASSETS", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FinalizeTimeout != 10*time.Minute || cfg.FetchTimeout != 45*time.Second {
		t.Fatalf("durations not parsed: %s %s", cfg.FinalizeTimeout, cfg.FetchTimeout)
	}
	if len(cfg.AssetAllowedHosts) != 2 || cfg.AssetAllowedHosts[1] != "assets.example.com" {
		t.Fatalf("AssetAllowedHosts = %#v", cfg.AssetAllowedHosts)
	}
	if !cfg.AllowInsecureAssets {
		t.Fatalf("ALLOW_INSECURE_ASSETS not applied")
	}
}

func TestLoad_TuningFileOverlaysEnv(t *testing.T) {
	t.Setenv("MUSIC_VOLUME", "0.5")
	t.Setenv("MOTION_SEED", "")
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	content := "finalize_timeout: 5m\nmotion_policy: random\nmotion_seed: 7\ntransitions: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write tuning: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.FinalizeTimeout != 5*time.Minute || cfg.MotionPolicy != timeline.MotionRandom || cfg.MotionSeed != 7 {
		t.Fatalf("tuning not applied: %+v", cfg)
	}
	if cfg.Transitions {
		t.Fatalf("transitions should be disabled by the tuning file")
	}
	if cfg.MusicVolume != 0.5 {
		t.Fatalf("unset tuning keys must keep env values, got %v", cfg.MusicVolume)
	}
}

func TestLoad_BadTuningFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("finalize_timeout: soon\n"), 0o644); err != nil {
		t.Fatalf("write tuning: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for bad duration")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			FinalizeTimeout:  time.Minute,
			FetchConcurrency: 4,
			MusicVolume:      0.2,
			MotionPreset:     "zoom-in",
			StorageBackend:   StorageS3,
			S3Bucket:         "reels",
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "s3 without bucket", mutate: func(c *Config) { c.S3Bucket = "" }, wantErr: true},
		{name: "file storage", mutate: func(c *Config) { c.StorageBackend = StorageFile; c.StoragePath = "media" }},
		{name: "unknown storage", mutate: func(c *Config) { c.StorageBackend = "gcs" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.FinalizeTimeout = 0 }, wantErr: true},
		{name: "loud music", mutate: func(c *Config) { c.MusicVolume = 3 }, wantErr: true},
		{name: "unknown policy", mutate: func(c *Config) { c.MotionPolicy = "wobble" }, wantErr: true},
		{name: "unknown preset", mutate: func(c *Config) { c.MotionPreset = "spin" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
