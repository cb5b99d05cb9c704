package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCORSPolicyAllowOrigin(t *testing.T) {
	policy := newCORSPolicy(config.CORSConfig{AllowedOrigins: []string{"*"}})
	if got := policy.allowOrigin("https://example.com"); got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	policy = newCORSPolicy(config.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})
	if got := policy.allowOrigin("https://example.com"); got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	policy = newCORSPolicy(config.CORSConfig{AllowedOrigins: []string{"https://admin.sarvcast.ir", " https://b.example.com "}})
	if got := policy.allowOrigin("https://Admin.sarvcast.ir"); got != "https://Admin.sarvcast.ir" {
		t.Fatalf("allow-list should match case-insensitively, got %s", got)
	}
	if got := policy.allowOrigin("https://x.example.com"); got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestCORSMiddlewareShortCircuitsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{MaxAge: 600}))
	r.PUT("/api/v1/admin/episodes/1/timeline", func(c *gin.Context) {
		t.Fatalf("preflight must not reach the handler")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/admin/episodes/1/timeline", nil)
	req.Header.Set("Origin", "https://admin.sarvcast.ir")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status want 204 got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("max age header missing: %v", w.Header())
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), requestIDHeader) {
		t.Fatalf("default headers should allow %s", requestIDHeader)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func TestLoggerMiddlewareAttachesRequestScopedLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) {
		logger.FromContext(c.Request.Context()).Infow("handler_event")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-456")
	r.ServeHTTP(w, req)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected handler and request entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.ContextMap()["request_id"] != "req-456" {
			t.Fatalf("entry %q missing request_id: %v", entry.Message, entry.ContextMap())
		}
	}
	if entries[1].Message != "request" || entries[1].ContextMap()["path"] != "/ping" {
		t.Fatalf("unexpected request entry: %+v", entries[1])
	}
}
