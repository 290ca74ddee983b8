package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"qatrack/backend/pkg/response"
)

const dateLayout = "2006-01-02"

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
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
	v, exists := c.Get("role")
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

// MustGetUUIDParam 读取并校验路径中的 UUID 参数，失败时写入 400 响应
func MustGetUUIDParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, 10001, "ID 格式错误")
		return "", false
	}
	return id, true
}

// MustGetDateQuery 读取必填日期查询参数（YYYY-MM-DD）
func MustGetDateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		response.BadRequest(c, 10001, name+" 不能为空")
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		response.BadRequest(c, 10001, name+" 格式错误，应为 YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

// OptionalDateQuery 读取可选日期查询参数；缺省返回 nil
func OptionalDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		response.BadRequest(c, 10001, name+" 格式错误，应为 YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
