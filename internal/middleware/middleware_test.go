package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, secret string, roles []string, ttl time.Duration) string {
	t.Helper()
	claims := JWTClaims{
		UserID: "u-1",
		Name:   "Planner",
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	api := r.Group("/api", JWTAuth(testSecret))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	api.POST("/save", RequireRole("planner"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter()
	tests := []struct {
		name   string
		token  string
		expect int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", signToken(t, "other", nil, time.Hour), http.StatusUnauthorized},
		{"expired", signToken(t, testSecret, nil, -time.Hour), http.StatusUnauthorized},
		{"valid", signToken(t, testSecret, nil, time.Hour), http.StatusOK},
	}
	for _, tt := range tests {
		w := serve(r, http.MethodGet, "/api/me", tt.token)
		if w.Code != tt.expect {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.expect, w.Code)
		}
	}
}

func TestJWTAuthQueryToken(t *testing.T) {
	r := newRouter()
	w := serve(r, http.MethodGet, "/api/me?token="+signToken(t, testSecret, nil, time.Hour), "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated request id")
	}
}

func TestRequireRole(t *testing.T) {
	r := newRouter()
	cases := map[string]int{
		"viewer":  http.StatusForbidden,
		"planner": http.StatusOK,
		RoleAdmin: http.StatusOK,
	}
	for role, expect := range cases {
		w := serve(r, http.MethodPost, "/api/save", signToken(t, testSecret, []string{role}, time.Hour))
		if w.Code != expect {
			t.Errorf("%s: expected %d, got %d", role, expect, w.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://plan.example.com/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/x", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := request(http.MethodGet, "https://plan.example.com")
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "https://plan.example.com" {
		t.Fatalf("Expected allowed origin echoed, got %d %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Expose-Headers") == "" {
		t.Error("Expected exposed headers on allowed origin")
	}
	if w := request(http.MethodOptions, "https://plan.example.com"); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 preflight, got %d", w.Code)
	}
	if w := request(http.MethodOptions, "https://evil.example.com"); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 preflight for unknown origin, got %d", w.Code)
	}
	w = request(http.MethodGet, "https://evil.example.com")
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("Unknown origin must not be allowed, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	open := gin.New()
	open.Use(CORS([]string{"*"}))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://any.example.com")
	w = httptest.NewRecorder()
	open.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected wildcard, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestLoggerSkipsPathsAndTagsSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core), "/health/live"))
	r.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/plan-sessions/:sid", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/health/live", "/plan-sessions/s-1"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected one log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("Expected warn for 404, got %v", e.Level)
	}
	if got := e.ContextMap()["session_id"]; got != "s-1" {
		t.Errorf("Expected session_id s-1, got %v", got)
	}
	if got := e.ContextMap()["route"]; got != "/plan-sessions/:sid" {
		t.Errorf("Expected route template, got %v", got)
	}
}
