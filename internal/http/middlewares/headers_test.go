package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, tls := range []bool{false, true} {
		r := gin.New()
		r.Use(SecurityHeaders(tls))
		r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Fatalf("nosniff: got %q", got)
		}
		if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
			t.Fatalf("frame options: got %q", got)
		}
		if hsts := w.Header().Get("Strict-Transport-Security"); (hsts != "") != tls {
			t.Fatalf("tls=%v: unexpected HSTS header %q", tls, hsts)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example/"}))
	r.GET("/course", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/course", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	send := func(method, origin string, preflight bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/course", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if preflight {
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodGet, "https://app.example", false)
	if w.Code != http.StatusOK {
		t.Fatalf("simple request: got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow origin: got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("credentials: got %q", got)
	}

	w = send(http.MethodGet, "https://evil.example", false)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be echoed, got %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Fatalf("vary: got %q", got)
	}

	w = send(http.MethodOptions, "https://app.example", true)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("preflight must list allowed methods")
	}

	w = send(http.MethodOptions, "https://evil.example", true)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Fatalf("foreign preflight: code=%d methods=%q", w.Code, w.Header().Get("Access-Control-Allow-Methods"))
	}

	// a bare OPTIONS without the preflight header reaches the route
	w = send(http.MethodOptions, "", false)
	if w.Code != http.StatusTeapot {
		t.Fatalf("plain OPTIONS: got %d", w.Code)
	}
}
