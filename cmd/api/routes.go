package main

import (
	"database/sql"
	"time"

	"voiceai-platform/internal/auth"
	"voiceai-platform/internal/booking"
	"voiceai-platform/internal/calls"
	"voiceai-platform/internal/httpapi"
	"voiceai-platform/internal/rbac"
	"voiceai-platform/internal/reporting"
	"voiceai-platform/internal/telephony"
	"voiceai-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

type registerDeps struct {
	db       *sql.DB
	auth     *auth.Manager
	gateway  *telephony.Gateway
	bookings booking.Repository
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, d registerDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public; protected by signature validation inside
	// the gateway, which is forced on in production).
	r.POST("/v1/voice/:tenant_id", d.gateway.HandleTurn)
	r.POST("/v1/voice/:tenant_id/poll/:task_id", d.gateway.HandlePoll)

	reports := reporting.NewService(reporting.NewCompositeRepo(
		calls.NewPostgresRepo(d.db),
		d.bookings,
	))
	h := httpapi.Handlers{
		Auth:     d.auth,
		Bookings: d.bookings,
		Reports:  reports,
	}

	// AUTH routes (token issuance).
	// NOTE: placeholder login; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	// protected admin API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(d.auth))
	v1.Use(rbac.RequireTenant())
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			tid, _ := auth.TenantID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "tenant_id": tid, "role": role})
		})

		appointments := v1.Group("/appointments")
		appointments.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleStaff, rbac.RoleAnalyst))
		{
			appointments.GET("", h.ListAppointments)
		}

		reportsGroup := v1.Group("/reports")
		reportsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAnalyst))
		{
			reportsGroup.GET("/calls", h.CallsSummary)
			reportsGroup.GET("/bookings", h.BookingsSummary)
		}
	}
}
