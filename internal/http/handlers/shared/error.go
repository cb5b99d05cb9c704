package shared

import (
	"errors"

	"github.com/sarvcast-next/internal/http/response"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil || c.Request == nil {
		return logger.S()
	}
	return logger.FromContext(c.Request.Context())
}

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
}

// ServiceErrorRules 按错误类别映射状态码，具体错误优先于类别。
var ServiceErrorRules = []MappedError{
	{Target: service.ErrNotFound, Code: response.CodeNotFound},
	{Target: service.ErrConflict, Code: response.CodeConflict},
	{Target: service.ErrValidation, Code: response.CodeBadRequest},
}

// RespondError 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Fail(c, appErr)
}

// RespondServiceError 将服务层错误转换为响应；内部错误只返回通用文案。
func RespondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, service.ErrInternal) {
		RespondError(c, response.CodeInternal, "internal error", err)
		return
	}
	appErr := mapServiceError(err)
	if appErr == nil {
		RespondError(c, response.CodeInternal, "internal error", err)
		return
	}
	var validationErr *service.TimelineValidationError
	if errors.As(err, &validationErr) && validationErr.Result != nil {
		appErr.WithData(gin.H{"result": validationErr.Result})
	}
	var minAmountErr *service.CouponMinAmountError
	if errors.As(err, &minAmountErr) {
		appErr.WithData(gin.H{"minimum_amount": minAmountErr.Minimum})
	}
	response.Fail(c, appErr)
}

func mapServiceError(err error) *response.AppError {
	for _, rule := range ServiceErrorRules {
		if errors.Is(err, rule.Target) {
			return response.WrapError(rule.Code, err.Error(), nil)
		}
	}
	return nil
}
