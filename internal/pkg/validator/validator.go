package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/territory-service/internal/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("lnglat", validateLngLat)
}

// Validate - валидация структуры, ошибки приводятся к INVALID_REQUEST
func Validate(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
				"field": first.Field(),
				"rule":  fmt.Sprintf("%s=%s", first.Tag(), first.Param()),
			})
		}
		return errors.ErrInvalidRequest
	}
	return nil
}

// GetValidator - получить валидатор для кастомной конфигурации
func GetValidator() *validator.Validate {
	return validate
}

// validateLngLat - пара [lng, lat] в пределах WGS84
func validateLngLat(fl validator.FieldLevel) bool {
	v, ok := fl.Field().Interface().([2]float64)
	if !ok {
		return false
	}
	return v[0] >= -180 && v[0] <= 180 && v[1] >= -90 && v[1] <= 90
}
