package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codequest/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
)

func TestTraceContextMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TraceContextMiddleware())

	var ctxTraceID, ginTraceID interface{}
	router.GET("/trace", func(c *gin.Context) {
		ctxTraceID = c.Request.Context().Value(contextkey.TraceID)
		ginTraceID, _ = c.Get(contextkey.GinTraceID)
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name     string
		header   string
		expected string
	}{
		{name: "generate trace id"},
		{name: "preserve trace id", header: "trace-123", expected: "trace-123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trace", nil)
			if tc.header != "" {
				req.Header.Set(traceIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			got := rec.Header().Get(traceIDHeader)
			if got == "" {
				t.Fatal("expected trace id response header")
			}
			if rec.Header().Get(requestIDHeader) == "" {
				t.Fatal("expected request id response header")
			}
			if tc.expected != "" && got != tc.expected {
				t.Fatalf("trace id = %q, want %q", got, tc.expected)
			}
			if ctxTraceID != got || ginTraceID != got {
				t.Fatalf("context trace id mismatch: ctx=%v gin=%v header=%v", ctxTraceID, ginTraceID, got)
			}
		})
	}
}
