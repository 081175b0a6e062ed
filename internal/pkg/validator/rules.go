package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var locationCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// registerCombatRules 注册战斗模块的自定义验证规则
func registerCombatRules(v *validator.Validate) {
	v.RegisterValidation("location_code", validateLocationCode)
}

// validateLocationCode 验证地点标识格式
// 长度 2-64，小写字母开头，只含小写字母、数字、下划线和连字符
func validateLocationCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) < 2 || len(code) > 64 {
		return false
	}
	return locationCodePattern.MatchString(code)
}
