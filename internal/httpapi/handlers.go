package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/types"
)

const maxBodyBytes = 1 << 20

type Service interface {
	Finalize(ctx context.Context, req types.FinalizeRequest) (types.FinalizeResult, error)
	Upload(ctx context.Context, req types.UploadRequest) (types.UploadResult, error)
}

type HealthChecker interface {
	Available(ctx context.Context) error
}

type App struct {
	Svc     Service
	Health  HealthChecker
	Log     zerolog.Logger
	Timeout time.Duration
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

func (a *App) Healthz(w http.ResponseWriter, r *http.Request) {
	if a.Health == nil {
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.Health.Available(ctx); err != nil {
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "ffmpeg": err.Error()})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "ffmpeg": "ok"})
}

func (a *App) Finalize(w http.ResponseWriter, r *http.Request) {
	var req types.FinalizeRequest
	if err := decode(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	req.VideoID = chi.URLParam(r, "videoID")

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	res, err := a.Svc.Finalize(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrInvalidRequest) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("finalize")
		a.error(w, http.StatusInternalServerError, "could not generate video")
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	var req types.UploadRequest
	if err := decode(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	req.VideoID = chi.URLParam(r, "videoID")

	ctx, cancel := a.withTimeout(r.Context())
	defer cancel()

	res, err := a.Svc.Upload(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrInvalidRequest) {
			a.error(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("upload")
		a.error(w, http.StatusInternalServerError, "Failed to upload video to YouTube")
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.Timeout)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
