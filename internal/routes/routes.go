package routes

import (
	"github.com/BradenHooton/sessionauth/internal/auth"
	"github.com/BradenHooton/sessionauth/internal/handlers"
	"github.com/BradenHooton/sessionauth/internal/middleware"
	"github.com/BradenHooton/sessionauth/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	userHandler *handlers.UserHandler,
	authHandler *handlers.AuthHandler,
	tokens auth.TokenValidator,
	rateLimitConfig middleware.RateLimitConfig,
) {
	limited := middleware.RateLimitByIP(rateLimitConfig)

	// Public routes - no authentication required
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(limited)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/forgot-password", authHandler.ForgotPassword)
		})

		// Bearer-authenticated
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(tokens))
			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Get("/profile", authHandler.GetProfile)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Get("/sessions/count", authHandler.SessionCount)

			r.With(auth.RequireRole(models.RoleAdmin)).Post("/sessions/cleanup", authHandler.CleanupSessions)
		})
	})

	router.Route("/users", func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokens))

		r.Get("/", userHandler.ListUsers)
		r.Get("/{id}", userHandler.GetUser)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/", userHandler.CreateUser)
			r.Delete("/{id}", userHandler.DeleteUser)
		})
	})
}
