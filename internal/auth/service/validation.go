package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/payrolladmin/payroll/backend/internal/common/constants"
)

type CredentialValidator struct {
	v *validator.Validate
}

func NewCredentialValidator() CredentialValidator {
	return CredentialValidator{v: validator.New()}
}

// Validate checks an already normalized email and a raw password against
// the signup policy. The password bound is in bytes since bcrypt truncates
// past 72.
func (cv CredentialValidator) Validate(email, password string) error {
	if err := cv.validateEmail(email); err != nil {
		return err
	}
	if len(password) < constants.PasswordMinLength || len(password) > constants.PasswordMaxLength {
		return ErrValidation.WithCause(fmt.Errorf(
			"password must be %d to %d bytes", constants.PasswordMinLength, constants.PasswordMaxLength,
		))
	}
	return nil
}

// ValidateLogin only rejects input that can not name an account. Password
// length is left to the hash comparison so a wrong password of any length
// fails as invalid credentials.
func (cv CredentialValidator) ValidateLogin(email, password string) error {
	if err := cv.validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return ErrValidation.WithCause(errors.New("password is required"))
	}
	return nil
}

func (cv CredentialValidator) validateEmail(email string) error {
	if err := cv.v.Var(email, fmt.Sprintf("required,email,max=%d", constants.EmailMaxLength)); err != nil {
		return ErrValidation.WithCause(fmt.Errorf("email: %w", err))
	}
	return nil
}
