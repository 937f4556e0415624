package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPut_CopiesUnderKey(t *testing.T) {
	root := t.TempDir()
	s, err := New(filepath.Join(root, "media"), "http://localhost:8080/media/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	src := filepath.Join(root, "final.mp4")
	if err := os.WriteFile(src, []byte("video"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	url, err := s.Put(context.Background(), "videos/1-abc.mp4", src, "video/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://localhost:8080/media/videos/1-abc.mp4" {
		t.Fatalf("unexpected url %s", url)
	}
	b, err := os.ReadFile(filepath.Join(s.BasePath(), "videos", "1-abc.mp4"))
	if err != nil || string(b) != "video" {
		t.Fatalf("artifact not stored: %q %v", b, err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must stay in place: %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "videos/a.mp4", want: "videos/a.mp4"},
		{in: "/videos//a.mp4", want: "videos/a.mp4"},
		{in: `videos\a.mp4`, want: "videos/a.mp4"},
		{in: "../etc/passwd", wantErr: true},
		{in: "videos/../../x", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := sanitizeKey(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestPut_CanceledContext(t *testing.T) {
	s, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "videos/a.mp4", "unused", "video/mp4"); err == nil {
		t.Fatalf("expected context error")
	}
}
