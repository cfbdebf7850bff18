package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dom-study/backend/pkg/response"
)

// requestIDMaxLen 外部传入的 X-Request-ID 最大长度
const requestIDMaxLen = 64

// RequestID 为每个请求分配追踪 ID
// 沿用调用方的 X-Request-ID（仅限字母、数字与 - _ . :），否则生成 UUID；
// 错误响应体与访问日志都带上同一个 ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if !validRequestID(rid) {
			rid = uuid.New().String()
		}

		c.Set(response.ContextRequestID, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}

func validRequestID(rid string) bool {
	if rid == "" || len(rid) > requestIDMaxLen {
		return false
	}
	for _, r := range rid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
