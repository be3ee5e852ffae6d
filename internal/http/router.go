package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	Therapists   *TherapistHandler
	TimeOff      *TimeOffHandler
	WorkingHours *WorkingHoursHandler
	Availability *AvailabilityHandler
	Appointments *AppointmentHandler
	Logger       *slog.Logger
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(RequestLogger(cfg.Logger))
	for _, mw := range cfg.Middleware {
		router.Use(mw)
	}

	router.Route("/therapists", func(r chi.Router) {
		if cfg.Therapists != nil {
			r.Post("/", cfg.Therapists.Create)
			r.Get("/", cfg.Therapists.List)
		}

		r.Route("/{therapistID}", func(r chi.Router) {
			if cfg.Therapists != nil {
				r.Get("/", cfg.Therapists.Get)
				r.Put("/", cfg.Therapists.Update)
			}

			if cfg.Availability != nil {
				r.Get("/availability", cfg.Availability.Get)
			}

			if cfg.TimeOff != nil {
				r.Route("/time-off", func(r chi.Router) {
					r.Post("/", cfg.TimeOff.Create)
					r.Get("/", cfg.TimeOff.List)
					r.Put("/{occurrenceID}", cfg.TimeOff.Update)
					r.Delete("/{occurrenceID}", cfg.TimeOff.Delete)
				})
			}

			if cfg.WorkingHours != nil {
				r.Route("/working-hours", func(r chi.Router) {
					r.Post("/", cfg.WorkingHours.Create)
					r.Get("/", cfg.WorkingHours.List)
					r.Put("/{occurrenceID}", cfg.WorkingHours.Update)
					r.Delete("/{occurrenceID}", cfg.WorkingHours.Delete)
				})
			}

			if cfg.Appointments != nil {
				r.Route("/appointments", func(r chi.Router) {
					r.Post("/", cfg.Appointments.Create)
					r.Get("/", cfg.Appointments.List)
				})
			}
		})
	})

	return router
}
