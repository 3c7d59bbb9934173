package service

import (
	"net/http"

	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
)

const SignupMessage = "Signup successful. Please login to create your company."

var (
	ErrServiceUnavailable = commonerrors.NewDomainError(
		"SERVICE_UNAVAILABLE",
		commonerrors.CategoryExternal,
		http.StatusServiceUnavailable,
		"service temporarily unavailable",
	)

	ErrValidation = commonerrors.NewDomainError(
		"VALIDATION_FAILED",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"validation failed",
	)
)
