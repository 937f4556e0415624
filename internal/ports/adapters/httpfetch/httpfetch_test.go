package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/ports"
)

func TestFetch_PreservesOrderAndNames(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.jpg":
			_, _ = w.Write([]byte("first"))
		case "/b":
			w.Header().Set("Content-Type", "image/webp")
			_, _ = w.Write([]byte("second"))
		default:
			_, _ = w.Write([]byte("third"))
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New(srv.Client(), Options{AllowInsecure: true, Concurrency: 2}, zerolog.Nop())
	paths, err := f.Fetch(context.Background(), ports.AssetImage, []string{
		srv.URL + "/a.jpg",
		srv.URL + "/b",
		srv.URL + "/c?sig=1",
	}, dir)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []string{"image_0.jpg", "image_1.webp", "image_2.png"}
	bodies := []string{"first", "second", "third"}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Fatalf("path %d = %s, want %s", i, filepath.Base(p), want[i])
		}
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if string(b) != bodies[i] {
			t.Fatalf("body %d = %q", i, b)
		}
	}
}

func TestFetch_FailsOnBadStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	f := New(srv.Client(), Options{AllowInsecure: true, Concurrency: 1}, zerolog.Nop())
	_, err := f.Fetch(context.Background(), ports.AssetVoiceover, []string{
		srv.URL + "/missing.mp3",
		srv.URL + "/ok.mp3",
	}, t.TempDir())
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if !strings.Contains(err.Error(), "unexpected status 404") {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() > 2 {
		t.Fatalf("fetcher retried: %d hits", hits.Load())
	}
}

func TestFetch_RejectsOversizedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := New(srv.Client(), Options{AllowInsecure: true, MaxBytes: 16}, zerolog.Nop())
	if _, err := f.Fetch(context.Background(), ports.AssetMusic, []string{srv.URL + "/m.mp3"}, t.TempDir()); err == nil {
		t.Fatalf("expected size limit error")
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := New(srv.Client(), Options{AllowInsecure: true}, zerolog.Nop())
	if _, err := f.Fetch(ctx, ports.AssetImage, []string{srv.URL + "/a.png"}, t.TempDir()); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}

func TestCheckURL(t *testing.T) {
	allowed := NormalizeAllowedHosts([]string{"https://cdn.example.com/", "Assets.Example.com:443"})
	tests := []struct {
		name     string
		url      string
		allowed  map[string]struct{}
		insecure bool
		wantErr  bool
	}{
		{name: "https any host", url: "https://a.example/x.png"},
		{name: "relative", url: "/x.png", wantErr: true},
		{name: "http rejected", url: "http://a.example/x.png", wantErr: true},
		{name: "http allowed", url: "http://a.example/x.png", insecure: true},
		{name: "userinfo", url: "https://u:p@a.example/x.png", wantErr: true},
		{name: "ftp", url: "ftp://a.example/x.png", wantErr: true},
		{name: "allowlisted", url: "https://cdn.example.com/x.png", allowed: allowed},
		{name: "allowlist normalized", url: "https://assets.example.com/x.png", allowed: allowed},
		{name: "not allowlisted", url: "https://evil.example/x.png", allowed: allowed, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckURL(tt.url, tt.allowed, tt.insecure)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		kind ports.AssetKind
		url  string
		ct   string
		want string
	}{
		{kind: ports.AssetImage, url: "https://x/a.JPEG", want: ".jpeg"},
		{kind: ports.AssetImage, url: "https://x/a", ct: "image/jpeg", want: ".jpg"},
		{kind: ports.AssetVoiceover, url: "https://x/v.php", ct: "audio/wav; charset=binary", want: ".wav"},
		{kind: ports.AssetVoiceover, url: "https://x/v", want: ".mp3"},
		{kind: ports.AssetImage, url: "https://x/i", ct: "application/octet-stream", want: ".png"},
	}
	for _, tt := range tests {
		if got := extension(tt.kind, tt.url, tt.ct); got != tt.want {
			t.Fatalf("extension(%s, %s, %s) = %s, want %s", tt.kind, tt.url, tt.ct, got, tt.want)
		}
	}
}
