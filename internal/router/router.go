package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/juicebox/backoffice/api/handler"
	"github.com/juicebox/backoffice/internal/middleware"
)

type Handlers struct {
	Auth         *apiHandler.AuthHandler
	Project      *apiHandler.ProjectHandler
	Override     *apiHandler.OverrideHandler
	Handoff      *apiHandler.HandoffHandler
	Notification *apiHandler.NotificationHandler
	Events       *apiHandler.EventsHandler
	Upload       *apiHandler.UploadHandler
	Webhook      *apiHandler.WebhookHandler
	Identity     *apiHandler.IdentityHandler
	DeadLetter   *apiHandler.DeadLetterHandler
	Health       *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Webhooks authenticate via HMAC signature, not JWT.
	r.POST("/api/v1/webhooks/payments", handlers.Webhook.Receive)
	r.POST("/api/v1/webhooks/identity", handlers.Identity.Receive)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/logout", handlers.Auth.Logout)

	// Any authenticated user
	r.GET("/api/v1/events", authMiddleware(handlers.Events.Stream))
	r.GET("/api/v1/notifications", authMiddleware(handlers.Notification.List))
	r.POST("/api/v1/notifications/read", authMiddleware(handlers.Notification.MarkRead))
	r.POST("/api/v1/notifications/read-all", authMiddleware(handlers.Notification.MarkAllRead))

	// Staff surfaces
	staff := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return authMiddleware(middleware.RequireStaff(h))
	}

	r.POST("/api/v1/projects", staff(handlers.Project.Create))
	r.GET("/api/v1/projects", staff(handlers.Project.List))
	r.GET("/api/v1/projects/{id}", staff(handlers.Project.Get))
	r.PUT("/api/v1/projects/{id}", staff(handlers.Project.Update))
	r.GET("/api/v1/projects/slug/{slug}", staff(handlers.Project.GetBySlug))
	r.GET("/api/v1/projects/{id}/payments", staff(handlers.Project.Payments))
	r.GET("/api/v1/projects/{id}/activity", staff(handlers.Project.Activity))
	r.POST("/api/v1/projects/{id}/uploads", staff(handlers.Upload.IssueURL))

	r.POST("/api/v1/projects/{id}/handoff", staff(handlers.Handoff.Generate))
	r.GET("/api/v1/projects/{id}/handoff", staff(handlers.Handoff.List))
	r.PUT("/api/v1/projects/{id}/handoff/{itemId}", staff(handlers.Handoff.Toggle))
	r.POST("/api/v1/projects/{id}/handoff/finalize", staff(handlers.Handoff.Finalize))

	// Admin-only overrides and journal access
	admin := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return authMiddleware(middleware.RequireAdmin(h))
	}

	r.POST("/api/v1/projects/{id}/override/status", admin(handlers.Override.ForceStatus))
	r.POST("/api/v1/projects/{id}/override/grace-period", admin(handlers.Override.OverrideGracePeriod))
	r.POST("/api/v1/projects/{id}/override/reset-missed", admin(handlers.Override.ResetMissedPayments))
	r.POST("/api/v1/projects/{id}/override/manual-payment", admin(handlers.Override.RecordManualPayment))

	r.GET("/api/v1/admin/dead-letter", admin(handlers.DeadLetter.List))
	r.POST("/api/v1/admin/dead-letter/{id}/replay", admin(handlers.DeadLetter.Replay))
	r.DELETE("/api/v1/admin/dead-letter/{id}", admin(handlers.DeadLetter.Discard))

	return r
}
