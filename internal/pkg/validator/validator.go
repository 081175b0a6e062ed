// Package validator 为 Echo 接入 go-playground/validator 的结构体校验
package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"tsu-combat/internal/pkg/xerrors"
)

// CustomValidator 包装 go-playground validator 供 Echo 使用
type CustomValidator struct {
	validator *validator.Validate
}

// Validate 实现 echo.Validator 接口
// 校验失败时返回 AppError，由错误中间件统一转换为响应
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return xerrors.NewWithError(xerrors.CodeInvalidParams, TranslateValidationError(err), err)
	}
	return nil
}

// New 创建校验器实例，内置战斗模块的自定义规则
func New() echo.Validator {
	v := validator.New()
	registerCombatRules(v)
	return &CustomValidator{
		validator: v,
	}
}
