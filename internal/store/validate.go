package store

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/utils"
)

var validate = validator.New()

// check validates an input struct and maps the first failure to a
// core validation error naming the offending field.
func check(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return core.ValidationError(utils.SnakeCase(fe.Field()), "must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value())
		}
		return core.ValidationError(utils.SnakeCase(fe.Field()), "must satisfy %s, got %v", fe.Tag(), fe.Value())
	}
	return core.ValidationError("input", "%v", err)
}
