package api

import (
	"meeting-placement-service/internal/api/handlers"
	"meeting-placement-service/internal/platform/obs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Search   handlers.Searcher
	Guard    handlers.BookingCommitter
	Schedule handlers.Scheduler
	Health   *handlers.HealthHandler
	// Optional; /metrics is not mounted without it.
	Metrics *obs.Metrics
	Logger  *zap.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.L()
	}
	health := d.Health
	if health == nil {
		health = &handlers.HealthHandler{}
	}

	searchHandler := &handlers.SearchHandler{Service: d.Search}
	bookingHandler := &handlers.BookingHandler{Guard: d.Guard, Schedule: d.Schedule}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(loggingMiddleware(logger))

	r.Get("/health", health.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Post("/searches", searchHandler.Search)
	r.Post("/meeting-times", bookingHandler.MeetingTimes)
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", bookingHandler.Create)
		r.Put("/{bookingID}/activate", bookingHandler.Activate)
		r.Put("/{bookingID}/deactivate", bookingHandler.Deactivate)
		r.Delete("/{bookingID}", bookingHandler.Delete)
		r.Get("/hosted/{userID}", bookingHandler.Hosted)
		r.Get("/invited/{userID}", bookingHandler.Invited)
	})

	return r
}
