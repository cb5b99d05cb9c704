package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newInputValidator 以 json 标签作为字段名的校验器
func newInputValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return newKindError(ErrValidation, "field "+first.Field()+" failed "+first.Tag()+" check")
	}
	return ErrInvalidInput
}
