package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/skylift-health/airlift-api/internal/middleware"
	"github.com/skylift-health/airlift-api/internal/models"
	"github.com/skylift-health/airlift-api/internal/repository"
	"github.com/skylift-health/airlift-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Enquiries     *EnquiryHandler
	Escalations   *EscalationHandler
	Queries       *QueryHandler
	Dashboard     *DashboardHandler
	Notifications *NotificationHandler
	Reference     *ReferenceHandler
	Users         *UserHandler
	Reports       *ReportHandler
	Metrics       *MetricsHandler
}

// RouteConfig toggles optional surfaces at registration time.
type RouteConfig struct {
	Prefix           string
	DashboardEnabled bool
	ReportsEnabled   bool
}

// RegisterRoutes mounts the API surface under the configured prefix.
// Auth routes stay open; everything else requires a valid token, with
// role gates mirroring the workflow's authority matrix.
func RegisterRoutes(r *gin.Engine, cfg RouteConfig, h Handlers, authService *service.AuthService, users *repository.UserRepository) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(cfg.Prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		authed := auth.Group("", middleware.JWT(authService))
		authed.POST("/logout", h.Auth.Logout)
		authed.POST("/change-password", h.Auth.ChangePassword)
		authed.GET("/me", h.Auth.Me)
	}

	protected := api.Group("", middleware.JWT(authService))

	enquiries := protected.Group("/enquiries")
	{
		enquiries.POST("",
			middleware.RequireRoles(models.RoleCMO),
			middleware.Audit(users, "CREATE", "enquiry"),
			h.Enquiries.Create)
		enquiries.GET("", h.Enquiries.List)
		enquiries.GET("/:id", h.Enquiries.Get)
		enquiries.GET("/:id/history", h.Enquiries.History)
		enquiries.POST("/:id/transition",
			middleware.RequireRoles(models.RoleSDM, models.RoleDM, models.RoleCMO, models.RoleServiceProvider),
			middleware.Audit(users, "TRANSITION", "enquiry"),
			h.Enquiries.Transition)
		enquiries.POST("/:id/escalations",
			middleware.RequireRoles(models.RoleSDM, models.RoleCMO),
			middleware.Audit(users, "ESCALATE", "enquiry"),
			h.Escalations.Create)
		enquiries.POST("/:id/queries",
			middleware.RequireRoles(models.RoleSDM, models.RoleDM, models.RoleCMO),
			middleware.Audit(users, "RAISE_QUERY", "enquiry"),
			h.Queries.Raise)
	}

	escalations := protected.Group("/escalations")
	{
		escalations.GET("", h.Escalations.List)
		escalations.PATCH("/:id",
			middleware.RequireRoles(models.RoleDM, models.RoleAdmin),
			middleware.Audit(users, "UPDATE", "escalation"),
			h.Escalations.Update)
		escalations.DELETE("/:id",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(users, "DELETE", "escalation"),
			h.Escalations.Delete)
	}

	queries := protected.Group("/queries")
	{
		queries.GET("", h.Queries.List)
		queries.GET("/:id", h.Queries.Get)
		queries.POST("/:id/response",
			middleware.RequireRoles(models.RoleCMO),
			middleware.Audit(users, "RESPOND_QUERY", "query"),
			h.Queries.Respond)
	}

	if cfg.DashboardEnabled {
		dashboard := protected.Group("/dashboard")
		dashboard.GET("/status-breakdown", h.Dashboard.StatusBreakdown)
		dashboard.GET("/monthly-trend", h.Dashboard.MonthlyTrend)
		dashboard.GET("/top", h.Dashboard.TopN)
	}

	protected.GET("/notifications", h.Notifications.List)

	if cfg.ReportsEnabled {
		reports := protected.Group("/reports",
			middleware.RequireRoles(models.RoleAdmin, models.RoleDM))
		reports.GET("/enquiries/csv", h.Reports.ExportCSV)
		reports.GET("/enquiries/pdf", h.Reports.ExportPDF)
	}

	districts := protected.Group("/districts")
	{
		districts.GET("", h.Reference.ListDistricts)
		districts.GET("/:id", h.Reference.GetDistrict)

		adminOnly := districts.Group("", middleware.RequireRoles(models.RoleAdmin))
		adminOnly.POST("", middleware.Audit(users, "CREATE", "district"), h.Reference.CreateDistrict)
		adminOnly.PUT("/:id", middleware.Audit(users, "UPDATE", "district"), h.Reference.UpdateDistrict)
		adminOnly.DELETE("/:id", middleware.Audit(users, "DELETE", "district"), h.Reference.DeleteDistrict)
	}

	hospitals := protected.Group("/hospitals")
	{
		hospitals.GET("", h.Reference.ListHospitals)
		hospitals.GET("/:id", h.Reference.GetHospital)

		adminOnly := hospitals.Group("", middleware.RequireRoles(models.RoleAdmin))
		adminOnly.POST("", middleware.Audit(users, "CREATE", "hospital"), h.Reference.CreateHospital)
		adminOnly.PUT("/:id", middleware.Audit(users, "UPDATE", "hospital"), h.Reference.UpdateHospital)
		adminOnly.DELETE("/:id", middleware.Audit(users, "DELETE", "hospital"), h.Reference.DeleteHospital)
	}

	usersGroup := protected.Group("/users", middleware.RequireRoles(models.RoleAdmin))
	{
		usersGroup.GET("", h.Users.List)
		usersGroup.GET("/:id", h.Users.Get)
		usersGroup.POST("", middleware.Audit(users, "CREATE", "user"), h.Users.Create)
		usersGroup.PUT("/:id", middleware.Audit(users, "UPDATE", "user"), h.Users.Update)
	}

	protected.GET("/metrics/status",
		middleware.RequireRoles(models.RoleAdmin),
		h.Metrics.Status)
}
