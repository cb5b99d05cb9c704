package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey gin 上下文中请求 ID 的键
const RequestIDKey = "request_id"

// Response 统一响应结构，HTTP 状态码恒为 200，业务结果看 status_code
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// BuildPagination 由页码与总数构造分页信息
func BuildPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		Response:   Response{StatusCode: CodeOK, Msg: "success", Data: data},
		Pagination: pagination,
	})
}

// Error 错误响应
func Error(c *gin.Context, statusCode int, msg string) {
	ErrorWithData(c, statusCode, msg, nil)
}

// ErrorWithData 错误响应，data 中会带上 request_id 便于排查
func ErrorWithData(c *gin.Context, statusCode int, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       withRequestID(c.GetString(RequestIDKey), data),
	})
}

// Fail 按 AppError 输出错误响应
func Fail(c *gin.Context, appErr *AppError) {
	if appErr == nil {
		Error(c, CodeInternal, "internal error")
		return
	}
	ErrorWithData(c, appErr.Code, appErr.Message, appErr.Data)
}

func withRequestID(requestID string, data interface{}) interface{} {
	if requestID == "" {
		return data
	}
	switch v := data.(type) {
	case nil:
		return gin.H{RequestIDKey: requestID}
	case gin.H:
		return mergeRequestID(v, requestID)
	case map[string]interface{}:
		return mergeRequestID(v, requestID)
	}
	return gin.H{RequestIDKey: requestID, "data": data}
}

func mergeRequestID(m map[string]interface{}, requestID string) map[string]interface{} {
	if _, exists := m[RequestIDKey]; !exists {
		m[RequestIDKey] = requestID
	}
	return m
}
