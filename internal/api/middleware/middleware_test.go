package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"dom-study/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_PropagatedToErrorBody(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/fail", func(c *gin.Context) {
		response.NotFound(c, 12001, "学习计划不存在")
	})

	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"沿用调用方 ID", "req-2026.03:01_a", true},
		{"缺失时生成", "", false},
		{"非法字符重新生成", "abc\ninjected", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/fail", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			var body response.Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("解析响应失败: %v", err)
			}
			rid := w.Header().Get("X-Request-ID")
			if rid == "" || body.RequestID != rid {
				t.Errorf("响应体 request_id=%q 与响应头 %q 不一致", body.RequestID, rid)
			}
			if tt.reuse != (rid == tt.header) {
				t.Errorf("request_id=%q，期望沿用=%v", rid, tt.reuse)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"白名单来源", "http://localhost:5173", http.StatusNoContent, "http://localhost:5173"},
		{"非白名单来源", "https://evil.example", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("期望状态码 %d，实际 %d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin 期望 %q，实际 %q", tt.wantAllow, got)
			}
		})
	}
}

func TestSecurityHeaders_HSTSBehindHTTPS(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HTTP 请求不应设置 HSTS")
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("期望 Cache-Control no-store，实际 %q", w.Header().Get("Cache-Control"))
	}

	req = httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HTTPS 请求应设置 HSTS")
	}
}
