package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/concave-dev/lockstep/internal/syncer"
	"github.com/concave-dev/lockstep/internal/viewport"
	"github.com/gin-gonic/gin"
)

// TestSetupRoutes verifies that all expected endpoints are registered and
// reachable through the router.
func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine, err := syncer.New(viewport.NewSimApplier(nil), nil)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Stop()

	server := NewServer(&Config{BindAddr: "127.0.0.1", BindPort: 7600, Engine: engine})
	router := gin.New()
	server.setupRoutes(router)

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/health"},
		{"GET", "/api/v1/metrics"},
		{"GET", "/api/v1/config"},
		{"PUT", "/api/v1/config"},
		{"GET", "/api/v1/groups"},
		{"POST", "/api/v1/operations/flush"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code == http.StatusNotFound {
				t.Errorf("route %s %s not registered", tt.method, tt.path)
			}
		})
	}
}

// TestCORSMiddleware verifies preflight handling
func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server := &Server{}
	router := gin.New()
	router.Use(server.corsMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
