package httpapi

import (
	"net/http"
	"time"

	"agentrelay/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(serverErrorLoggerMiddleware)
	r.Use(newCORSPolicy(d.CORSAllowedOrigins).middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Heartbeat("/healthz"))

	s := server{
		store:           d.Store,
		tokens:          d.Tokens,
		relay:           d.Relay,
		mailer:          d.Mailer,
		frontendBaseURL: d.FrontendBaseURL,
	}

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(s.optionalUser).Get("/status", s.handleStatus)

		r.Route("/auth", func(r chi.Router) {
			r.Use(newIPRateLimiter(30, time.Minute).middleware)
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/request-reset", s.handleRequestReset)
			r.Post("/reset-password", s.handleResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Get("/me", s.handleMe)
				r.Post("/logout", s.handleLogout)
				r.Put("/change-password", s.handleChangePassword)
				r.Put("/update-profile", s.handleUpdateProfile)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Post("/agents", s.handleCreateAgent)
			r.Get("/agents", s.handleListAgents)
			r.Get("/agents/{agentID}", s.handleGetAgent)
			r.Put("/agents/{agentID}", s.handleUpdateAgent)
			r.Delete("/agents/{agentID}", s.handleDeleteAgent)
			r.Get("/agents/{agentID}/chats", s.handleListChats)
			r.Delete("/agents/{agentID}/chats", s.handleDeleteChats)

			r.Post("/chat/{agentID}", s.handleChat)

			r.Post("/tools", s.handleCreateTool)
			r.Get("/tools", s.handleListTools)
			r.Get("/tools/{toolID}", s.handleGetTool)
			r.Put("/tools/{toolID}", s.handleUpdateTool)
			r.Delete("/tools/{toolID}", s.handleDeleteTool)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Use(s.requireAdmin)
			r.Get("/users", s.handleAdminListUsers)
			r.Put("/users/{userID}/role", s.handleAdminSetRole)
			r.Delete("/users/{userID}", s.handleAdminDeleteUser)
			r.Get("/logs", s.handleAdminListLogs)
		})
	})

	return r
}
