package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"homeserve/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var secret = []byte("test-secret")

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/who", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": ActorID(c), "role": ActorRole(c)})
	})
	return r
}

func get(r http.Handler, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthRoles(t *testing.T) {
	r := newRouter(JWTAuthMiddleware(secret, utils.RoleStaff))

	staff, _ := utils.GenerateToken(secret, "staff-1", utils.RoleStaff, time.Hour)
	customer, _ := utils.GenerateToken(secret, "cust-1", utils.RoleCustomer, time.Hour)
	admin, _ := utils.GenerateToken(secret, "ops-1", utils.RoleAdmin, time.Hour)
	forged, _ := utils.GenerateToken([]byte("other"), "staff-1", utils.RoleStaff, time.Hour)
	expired, _ := utils.GenerateToken(secret, "staff-1", utils.RoleStaff, -time.Minute)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"staff", staff, http.StatusOK},
		{"admin passes role checks", admin, http.StatusOK},
		{"wrong role", customer, http.StatusForbidden},
		{"missing", "", http.StatusUnauthorized},
		{"wrong key", forged, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := get(r, tc.token, nil); w.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", w.Code, tc.want, w.Body)
			}
		})
	}
}

func TestRateLimitPerClientIP(t *testing.T) {
	r := newRouter(RateLimitMiddleware(2))
	a := map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.1"}
	b := map[string]string{"X-Real-IP": "10.0.0.2"}

	for i := 0; i < 2; i++ {
		if w := get(r, "", a); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	if w := get(r, "", a); w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", w.Code)
	}
	if w := get(r, "", b); w.Code != http.StatusOK {
		t.Fatalf("other client: status %d", w.Code)
	}
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.9:4000", "203.0.113.7"},
		{"garbage first entry", map[string]string{"X-Forwarded-For": "unknown, 198.51.100.2"}, "10.0.0.9:4000", "198.51.100.2"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.3 "}, "10.0.0.9:4000", "198.51.100.3"},
		{"remote addr", nil, "192.0.2.4:5555", "192.0.2.4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				c.Request.Header.Set(k, v)
			}
			if got := clientIP(c); got != tc.want {
				t.Fatalf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store := newRateLimiterStore(1)
	store.now = func() time.Time { return now }

	if !store.allow("10.0.0.1") || store.allow("10.0.0.1") {
		t.Fatal("burst of one expected")
	}
	now = now.Add(limiterIdleTTL + time.Second)
	if !store.allow("10.0.0.2") {
		t.Fatal("new client refused")
	}
	if store.size() != 1 {
		t.Fatalf("idle limiter kept, size = %d", store.size())
	}
}

func TestRequestLoggerSetsScopedLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) {
		if _, ok := c.Get("logger"); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) != "req-42" {
		t.Fatalf("request id not echoed: %q", w.Header().Get(RequestIDHeader))
	}
}
