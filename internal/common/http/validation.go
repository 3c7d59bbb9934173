package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
)

var errTrailingData = errors.New("unexpected data after JSON body")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStruct turns validator failures into a 400 naming the first bad field.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return commonerrors.ErrInvalidPayload.WithCause(err)
	}

	fe := fieldErrs[0]
	return commonerrors.NewDomainError(
		CodeValidation,
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		describeFieldError(fe),
	).WithCause(err)
}

// DecodeAndValidate decodes the body into v and runs struct validation.
func DecodeAndValidate(r *http.Request, v any) error {
	if err := DecodeJSON(r, v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errRequestTooLarge.WithCause(err)
		}
		return commonerrors.ErrInvalidPayload.WithCause(err)
	}
	return ValidateStruct(v)
}

var errRequestTooLarge = commonerrors.NewDomainError(
	CodeTooLarge,
	commonerrors.CategoryValidation,
	http.StatusRequestEntityTooLarge,
	"request body too large",
)

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
