package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	sessionHandler := handlers.NewSessionHandler(s.services.Attendance)
	recognizeHandler := handlers.NewRecognizeHandler(s.services.Attendance)
	identitiesHandler := handlers.NewIdentitiesHandler(s.services.Attendance)
	leavesHandler := handlers.NewLeavesHandler(s.services.Leaves)
	recapHandler := handlers.NewRecapHandler(s.services.Recap, s.services.Periods)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.APIToken))

		// Session control
		r.Get("/session", sessionHandler.Get)
		r.Post("/session/start", sessionHandler.Start)
		r.Post("/session/late", sessionHandler.Late)
		r.Post("/session/end", sessionHandler.End)

		// Capture stations
		r.Post("/recognize", recognizeHandler.Recognize)

		// Roster
		r.Get("/identities", identitiesHandler.List)
		r.Post("/identities", identitiesHandler.Create)
		r.Post("/identities/{id}/face", identitiesHandler.EnrollFace)
		r.Post("/identities/{id}/classes", identitiesHandler.AssignClass)

		// Leave requests
		r.Get("/leaves", leavesHandler.List)
		r.Post("/leaves", leavesHandler.Create)
		r.Post("/leaves/{id}/review", leavesHandler.Review)

		// Recap
		r.Get("/recap", recapHandler.Get)
		r.Get("/recap/export.xlsx", recapHandler.Export)
	})
}
