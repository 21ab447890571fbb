package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestIDReusesValidHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = RequestIDFromContext(c) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-123.abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen != "req-123.abc" || rec.Header().Get("X-Request-Id") != "req-123.abc" {
		t.Fatalf("expected inbound id to be reused, got %q / %q", seen, rec.Header().Get("X-Request-Id"))
	}
}

func TestRequestIDReplacesInvalidHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {})

	for _, inbound := range []string{"", "has space", "line\nbreak", strings.Repeat("a", 200)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header.Set("X-Request-Id", inbound)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		got := rec.Header().Get("X-Request-Id")
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("inbound %q: expected generated uuid, got %q", inbound, got)
		}
	}
}
