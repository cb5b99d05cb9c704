package response

// AppError 接口层错误：状态码、对外文案与可选附加数据
type AppError struct {
	Code    int
	Message string
	Data    interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithData 附加返回给调用方的数据
func (e *AppError) WithData(data interface{}) *AppError {
	e.Data = data
	return e
}
