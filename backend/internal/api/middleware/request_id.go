package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "request_id"
	// DefaultRequestIDHeader 未配置 server.request_id_header 时使用
	DefaultRequestIDHeader = "X-Request-ID"
	requestIDMaxLen        = 64
)

// RequestID 请求追踪 ID 中间件
// 从 header 读取上游（网关或外部认证服务）传入的 ID，缺失或不合法时生成 UUID；
// 结果写入 gin.Context 并原样回写到响应头，便于跨服务关联日志。
func RequestID(header string) gin.HandlerFunc {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return func(c *gin.Context) {
		rid := c.GetHeader(header)
		if !validRequestID(rid) {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header(header, rid)

		c.Next()
	}
}

// validRequestID 只接受有限长度的字母、数字与 - _ . :，防止日志注入
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
