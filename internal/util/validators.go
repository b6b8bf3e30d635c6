package util

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateNotBlank 验证字符串去除首尾空白后非空
func ValidateNotBlank(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return strings.TrimSpace(s) != ""
}

// ValidateHandle 用户名只允许字母、数字、下划线和点
func ValidateHandle(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if s == "" {
		return true
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.') {
			return false
		}
	}
	return true
}

// RegisterValidators 注册自定义验证器
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("notblank", ValidateNotBlank); err != nil {
		return err
	}
	return v.RegisterValidation("handle", ValidateHandle)
}
