package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"dom-study/backend/internal/api/middleware"
	"dom-study/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextRole)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// GetTokenMeta 提取当前 Access Token 的 jti 与剩余有效期，供登出写入黑名单
func GetTokenMeta(c *gin.Context) (string, time.Duration) {
	jti := c.GetString(middleware.ContextTokenID)
	ttl, _ := c.Get(middleware.ContextTokenTTL)
	d, _ := ttl.(time.Duration)
	return jti, d
}

// mustParam 读取非空路径参数
func mustParam(c *gin.Context, name, message string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		response.BadRequest(c, 10001, message)
		return "", false
	}
	return v, true
}
