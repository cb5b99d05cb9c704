package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/sarvcast-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// PageQuery 读取 page / page_size 查询参数
func PageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return NormalizePagination(page, pageSize)
}

// ParseUintParam 读取路径中的正整数 ID，失败时直接写出 400 响应。
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return uint(value), true
}

// ParseUintQuery 读取可选正整数查询参数，空值返回 0。
func ParseUintQuery(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return uint(value), true
}

// ParseTimeQuery 读取可选 RFC3339 时间查询参数。
func ParseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return nil, false
	}
	return &parsed, true
}
