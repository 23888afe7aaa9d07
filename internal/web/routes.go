package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/patient-face-id/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	patientsHandler := handlers.NewPatientsHandler(s.service)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1/patients", func(r chi.Router) {
		r.Post("/register", patientsHandler.Register)
		r.Post("/identify", patientsHandler.Identify)
	})
}
