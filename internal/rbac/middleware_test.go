package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceai-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithIdentity(t *testing.T, userID, tenantID, role string, allowed ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), userID, tenantID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, RequireTenant(), RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AllowedRolePasses(t *testing.T) {
	if code := serveWithIdentity(t, "u", "t1", RoleAnalyst, RoleOwner, RoleAnalyst); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	if code := serveWithIdentity(t, "u", "t1", RoleSuperAdmin, RoleOwner); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_OtherRoleForbidden(t *testing.T) {
	if code := serveWithIdentity(t, "u", "t1", RoleStaff, RoleOwner); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_TenantRequired(t *testing.T) {
	if code := serveWithIdentity(t, "u", "", RoleOwner, RoleOwner); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
