// Package httpapi assembles the chi router for the task API.
package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mediacore/internal/http/handlers"
	"mediacore/internal/infra"
	"mediacore/internal/middleware"
)

// Options carries router configuration.
type Options struct {
	AuthSecret     string
	AllowedOrigins []string
	LaunchLimit    int
	Logger         infra.Logger
}

// NewRouter wires middleware and routes around the handler set.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.Logger(opts.Logger))

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CallerAuth(opts.AuthSecret))

		r.Route("/v1/tasks", func(r chi.Router) {
			launchLimit := opts.LaunchLimit
			if launchLimit <= 0 {
				launchLimit = 60
			}
			r.With(middleware.RateLimit(launchLimit, time.Minute)).Post("/", app.LaunchTask)
			r.Post("/{taskID}/poll", app.PollTask)
		})

		r.Route("/v1/events", func(r chi.Router) {
			r.Get("/", app.StreamEvents)
			r.Get("/pending", app.PendingEvents)
		})
	})

	return r
}
