package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/waktsa/elearning/internal/http/handlers"
)

func TestReadyz(t *testing.T) {
	storeErr := error(nil)

	h := handlers.NewHealthHandler(
		func() gin.H { return gin.H{"receipts": gin.H{"queued": 0}} },
		handlers.ReadinessCheck{Name: "store", Check: func(context.Context) error { return storeErr }},
	)
	r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200, body=%s", w.Code, w.Body.String())
	}

	storeErr = errors.New("connection refused")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", w.Code)
	}

	var body struct {
		Status   string            `json:"status"`
		Checks   map[string]string `json:"checks"`
		Receipts map[string]int    `json:"receipts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "not_ready" || body.Checks["store"] != "connection refused" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if _, ok := body.Receipts["queued"]; !ok {
		t.Fatalf("expected extra fields in body: %s", w.Body.String())
	}
}
