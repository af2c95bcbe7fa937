package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Service BookingService
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Log     zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service

	// Catalog
	r.Get("/specialties", listSpecialtiesHandler(svc))
	r.Get("/specialties/{id}/doctors", listDoctorsHandler(svc))
	r.Get("/specialties/{id}/free-slots", specialtyFreeSlotsHandler(svc))
	r.Get("/doctors/{id}/free-slots", doctorFreeSlotsHandler(svc))

	// Bookings
	r.Post("/bookings", createBookingHandler(svc))
	r.Get("/bookings/{id}", getBookingHandler(svc))
	r.Post("/bookings/{id}/confirm", confirmBookingHandler(svc))
	r.Post("/bookings/{id}/cancel", cancelBookingHandler(svc))
	r.Post("/bookings/{id}/reschedule", rescheduleBookingHandler(svc))
	r.Post("/bookings/{id}/complete", completeBookingHandler(svc))
	r.Get("/patients/{id}/bookings", listPatientBookingsHandler(svc))

	// Admin
	r.Route("/admin", func(r chi.Router) {
		r.Post("/doctors", createDoctorHandler(svc))
		r.Post("/doctors/{id}/deactivate", deactivateDoctorHandler(svc))
		r.Delete("/doctors/{id}", deleteDoctorHandler(svc))
		r.Post("/specialties", createSpecialtyHandler(svc))
		r.Post("/specialties/{id}/deactivate", deactivateSpecialtyHandler(svc))
		r.Post("/slots/generate", generateSlotsHandler(svc))
		r.Post("/slots/{id}/deactivate", deactivateSlotHandler(svc))
		r.Delete("/slots/{id}", deleteSlotHandler(svc))
	})

	return r
}
