package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"voiceai-platform/internal/auth"
	"voiceai-platform/internal/booking"
	"voiceai-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups the admin API handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Bookings booking.Repository
	Reports  *reporting.Service
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// Login issues an access token.
//
// NOTE: This is a skeleton-only endpoint. Real deployments must validate
// credentials before issuing.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.TenantID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, tenant_id, role required"})
		return
	}
	tok, err := h.Auth.Issue(time.Now(), req.UserID, req.TenantID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok})
}

// --- Appointments ---

// ListAppointments returns the tenant's recent bookings, newest first.
func (h Handlers) ListAppointments(c *gin.Context) {
	if h.Bookings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "bookings not configured"})
		return
	}
	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
	}

	out, err := h.Bookings.ListByTenant(c.Request.Context(), tenantID, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "appointment lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

// --- Reports ---

// CallsSummary aggregates call outcomes for a date range.
func (h Handlers) CallsSummary(c *gin.Context) {
	req, ok := h.summaryRequest(c)
	if !ok {
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), req)
	if err == reporting.ErrInvalidRequest {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// BookingsSummary aggregates appointments for a date range.
func (h Handlers) BookingsSummary(c *gin.Context) {
	req, ok := h.summaryRequest(c)
	if !ok {
		return
	}
	out, err := h.Reports.BookingsSummary(c.Request.Context(), req)
	if err == reporting.ErrInvalidRequest {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// summaryRequest builds the tenant-scoped range from query parameters.
// Missing bounds default to the trailing seven days.
func (h Handlers) summaryRequest(c *gin.Context) (reporting.SummaryRequest, bool) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return reporting.SummaryRequest{}, false
	}
	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return reporting.SummaryRequest{}, false
	}

	now := time.Now().UTC()
	from := now.Add(-7 * 24 * time.Hour)
	to := now

	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return reporting.SummaryRequest{}, false
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return reporting.SummaryRequest{}, false
		}
	}

	return reporting.SummaryRequest{
		TenantID: tenantID,
		Range:    reporting.Range{From: from, To: to},
	}, true
}
