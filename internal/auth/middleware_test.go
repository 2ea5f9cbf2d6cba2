package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voiceai-platform/internal/config"

	"github.com/gin-gonic/gin"
)

func newAuthedRouter(t *testing.T) (*gin.Engine, *Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		tid, _ := TenantID(c.Request.Context())
		c.JSON(200, gin.H{"tenant_id": tid})
	})
	return r, m
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAccessToken_MissingTokenUnauthorized(t *testing.T) {
	r, _ := newAuthedRouter(t)

	if w := get(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := get(r, "Basic abc"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", w.Code)
	}
	if w := get(r, "Bearer not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
}

func TestRequireAccessToken_ValidTokenInjectsIdentity(t *testing.T) {
	r, m := newAuthedRouter(t)

	tok, err := m.Issue(time.Now(), "user-1", "t1", "owner")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := get(r, "Bearer "+tok)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"tenant_id":"t1"`) {
		t.Fatalf("expected tenant in response, got %s", w.Body.String())
	}
}
