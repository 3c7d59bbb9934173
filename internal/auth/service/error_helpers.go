package service

import (
	"errors"
	"net/http"

	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
)

func handleCircuitBreakerError(err error) error {
	if errors.Is(err, commonerrors.ErrCircuitOpen) {
		return ErrServiceUnavailable.WithCause(err)
	}
	return err
}

// passDomainOr returns err unchanged when it already is a DomainError and
// wraps it as an internal error otherwise.
func passDomainOr(code, message string, err error) error {
	if err == nil {
		return nil
	}
	err = handleCircuitBreakerError(err)
	if commonerrors.IsDomainError(err) {
		return err
	}
	return newInternalError(code, message, err)
}

func newInternalError(code, message string, cause error) commonerrors.DomainError {
	err := commonerrors.NewDomainError(
		code,
		commonerrors.CategoryInternal,
		http.StatusInternalServerError,
		message,
	)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
