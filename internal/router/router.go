package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lms-portal-api/internal/config"
	"github.com/noah-isme/lms-portal-api/internal/handler"
	"github.com/noah-isme/lms-portal-api/internal/middleware"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	CourseHandler       *handler.CourseHandler
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	GradeHandler        *handler.GradeHandler
	AttendanceHandler   *handler.AttendanceHandler
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler
	VideoHandler        *handler.VideoHandler
	OfficeHourHandler   *handler.OfficeHourHandler
	PaymentHandler      *handler.PaymentHandler
	DashboardHandler    *handler.DashboardHandler
	ActivityHandler     *handler.ActivityHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	staffOnly := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(api.Group("/auth", jwtMiddleware))
	}

	if deps.PaymentHandler != nil {
		// Gateway callback authenticates with its own key rather than a JWT.
		deps.PaymentHandler.RegisterWebhook(api.Group("/payments"))
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware, adminOnly)
		deps.UserHandler.Register(users)
	}

	if deps.CourseHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses)
	}

	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignments)

		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.RegisterAttemptRoutes(assignments)
			deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware))
		}
	}

	if deps.GradeHandler != nil {
		grades := api.Group("/grades", jwtMiddleware)
		deps.GradeHandler.Register(grades)
	}

	if deps.AttendanceHandler != nil {
		attendance := api.Group("/attendance", jwtMiddleware)
		deps.AttendanceHandler.Register(attendance)
	}

	if deps.ChatHandler != nil {
		chat := api.Group("/chat", jwtMiddleware)
		deps.ChatHandler.Register(chat)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.VideoHandler != nil {
		videos := api.Group("/videos", jwtMiddleware)
		deps.VideoHandler.Register(videos)
	}

	if deps.OfficeHourHandler != nil {
		officeHours := api.Group("/office-hours", jwtMiddleware)
		deps.OfficeHourHandler.Register(officeHours)
	}

	if deps.PaymentHandler != nil {
		payments := api.Group("/payments", jwtMiddleware)
		deps.PaymentHandler.Register(payments)
	}

	if deps.DashboardHandler != nil {
		dashboards := api.Group("/dashboards", jwtMiddleware)
		deps.DashboardHandler.Register(dashboards)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/admin/activity", jwtMiddleware, staffOnly)
		deps.ActivityHandler.Register(activity)
	}
}
