package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/models"
)

// locationNamePattern 地点名称允许的字符
var locationNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s,.-]+$`)

// newValidator 创建带自定义规则的校验器，错误中的字段名使用 json 标签
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("latlng", func(fl validator.FieldLevel) bool {
		_, err := models.ParseLocation(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("placename", func(fl validator.FieldLevel) bool {
		return ValidLocationName(fl.Field().String())
	})
	return v
}

// ValidLocationName 地点名称至少 2 个字符，且只包含字母、数字、空格和 , . -
func ValidLocationName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 2 {
		return false
	}
	return locationNamePattern.MatchString(name)
}

// validationError 将校验错误转换为面向用户的提示
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.Wrap(apperr.KindValidation, strings.Join(msgs, "; "), err)
}

var fieldLabels = map[string]string{
	"origin":               "Origin",
	"destination":          "Destination",
	"current_soc":          "Current battery level",
	"battery_capacity_kwh": "Battery capacity",
	"min_soc":              "Minimum charge level",
	"target_soc":           "Target charge level",
	"amenity_preferences":  "Amenity preference",
	"make":                 "Make",
	"model":                "Model",
	"email":                "Email",
	"password":             "Password",
	"confirm_password":     "Password confirmation",
	"name":                 "Name",
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "latlng":
		return label + " must be coordinates in \"lat,lng\" form"
	case "placename":
		return label + " must be at least 2 characters and contain only letters, numbers, spaces, commas, periods and hyphens"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "ltfield":
		return label + " must be below the target charge level"
	case "eqfield":
		return "Passwords do not match"
	case "email":
		return label + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	default:
		return label + " is invalid"
	}
}
