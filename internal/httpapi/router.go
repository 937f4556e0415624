package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the API. A non-empty mediaDir is served under /media for
// the filesystem artifact store.
func NewRouter(app *App, mediaDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RequestID,
		middleware.RealIP,
		Logger(app.Log),
		middleware.Recoverer,
	)

	r.Get("/healthz", app.Healthz)

	r.Route("/api/videos", func(r chi.Router) {
		r.Post("/finalize", app.Finalize)
		r.Post("/{videoID}/finalize", app.Finalize)
		r.Post("/{videoID}/upload", app.Upload)
	})

	if mediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaDir))))
	}

	return r
}
