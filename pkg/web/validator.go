package web

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidDecimal validates that a string field holds a decimal number.
var ValidDecimal validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	_, err := decimal.NewFromString(s)

	return err == nil
}

// ValidPositiveDecimal validates that a string field holds a decimal number greater than zero.
var ValidPositiveDecimal validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}

	return d.IsPositive()
}

// RegisterValidations registers every named validation on v.
func RegisterValidations(v *validator.Validate, validations map[string]validator.Func) error {
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	return nil
}
