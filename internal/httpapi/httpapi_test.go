package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/types"
)

type fakeService struct {
	finalizeReq types.FinalizeRequest
	uploadReq   types.UploadRequest
	deadline    bool
	err         error
}

func (f *fakeService) Finalize(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error) {
	f.finalizeReq = req
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return types.FinalizeResult{}, f.err
	}
	return types.FinalizeResult{VideoURL: "https://cdn/v.mp4", CleanScript: "hello", VideoType: string(req.VideoType)}, nil
}

func (f *fakeService) Upload(_ context.Context, req types.UploadRequest) (types.UploadResult, error) {
	f.uploadReq = req
	if f.err != nil {
		return types.UploadResult{}, f.err
	}
	return types.UploadResult{YouTubeID: "abc", YouTubeURL: "https://www.youtube.com/watch?v=abc"}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Available(context.Context) error { return f.err }

func newTestRouter(svc Service, health HealthChecker, mediaDir string) http.Handler {
	app := &App{Svc: svc, Health: health, Log: zerolog.Nop(), Timeout: time.Minute}
	return NewRouter(app, mediaDir)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

const finalizeBody = `{"images":["https://a/1.png"],"voiceovers":["https://a/v.mp3"],"script":"hi","videoType":"shorts","status":"completed"}`

func TestFinalize_OK(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	rec := do(t, newTestRouter(svc, nil, ""), http.MethodPost, "/api/videos/vid-1/finalize", finalizeBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["videoUrl"] != "https://cdn/v.mp4" || body["videoType"] != "shorts" {
		t.Fatalf("unexpected body %v", body)
	}
	if svc.finalizeReq.VideoID != "vid-1" {
		t.Fatalf("video id = %q", svc.finalizeReq.VideoID)
	}
	if !svc.deadline {
		t.Fatalf("expected request deadline")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestFinalize_WithoutVideoID(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	rec := do(t, newTestRouter(svc, nil, ""), http.MethodPost, "/api/videos/finalize", finalizeBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.finalizeReq.VideoID != "" {
		t.Fatalf("video id = %q", svc.finalizeReq.VideoID)
	}
}

func TestFinalize_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "bad json", body: "{", wantCode: http.StatusBadRequest, wantMsg: "invalid JSON body"},
		{name: "invalid request", body: finalizeBody, err: fmt.Errorf("%w: images are required", types.ErrInvalidRequest), wantCode: http.StatusBadRequest, wantMsg: "images are required"},
		{name: "render failure", body: finalizeBody, err: errors.New("ffmpeg exploded"), wantCode: http.StatusInternalServerError, wantMsg: "could not generate video"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, newTestRouter(&fakeService{err: tt.err}, nil, ""), http.MethodPost, "/api/videos/finalize", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if msg := decodeBody(t, rec)["error"]; !strings.Contains(msg, tt.wantMsg) {
				t.Fatalf("error = %q, want %q", msg, tt.wantMsg)
			}
			if tt.wantCode == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "ffmpeg") {
				t.Fatalf("internal detail leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	h := newTestRouter(svc, nil, "")
	rec := do(t, h, http.MethodPost, "/api/videos/vid-2/upload",
		`{"videoUrl":"https://cdn/v.mp4","title":"T","description":"D","tags":["a"],"videoType":"long"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["youtubeId"] != "abc" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if svc.uploadReq.VideoID != "vid-2" || svc.uploadReq.Title != "T" {
		t.Fatalf("unexpected request %+v", svc.uploadReq)
	}

	failing := newTestRouter(&fakeService{err: errors.New("quota")}, nil, "")
	rec = do(t, failing, http.MethodPost, "/api/videos/vid-2/upload", `{"videoUrl":"https://cdn/v.mp4","title":"T"}`)
	if rec.Code != http.StatusInternalServerError || decodeBody(t, rec)["error"] != "Failed to upload video to YouTube" {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(&fakeService{}, fakeHealth{}, ""), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || decodeBody(t, rec)["ffmpeg"] != "ok" {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, newTestRouter(&fakeService{}, fakeHealth{err: errors.New("ffmpeg not found")}, ""), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable || decodeBody(t, rec)["status"] != "degraded" {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestMediaServing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "videos"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "videos", "a.mp4"), []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := do(t, newTestRouter(&fakeService{}, nil, dir), http.MethodGet, "/media/videos/a.mp4", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "mp4" {
		t.Fatalf("status = %d body=%q", rec.Code, rec.Body.String())
	}

	rec = do(t, newTestRouter(&fakeService{}, nil, ""), http.MethodGet, "/media/videos/a.mp4", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("media must not be served without a dir, got %d", rec.Code)
	}
}

func TestRequestID_Propagates(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "rid-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "rid-42" || rec.Header().Get("X-Request-ID") != "rid-42" {
		t.Fatalf("request id = %q header=%q", seen, rec.Header().Get("X-Request-ID"))
	}
}
