package commonerrors

import "net/http"

var (
	ErrInvalidPayload = NewDomainError(
		"INVALID_PAYLOAD",
		CategoryValidation,
		http.StatusBadRequest,
		"invalid payload",
	)

	ErrEmailAlreadyInUse = NewDomainError(
		"EMAIL_IN_USE",
		CategoryConflict,
		http.StatusConflict,
		"Email already in use",
	)

	ErrInvalidCredentials = NewDomainError(
		"INVALID_CREDENTIALS",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"Invalid credentials",
	)

	ErrRefreshNotAllowed = NewDomainError(
		"REFRESH_NOT_ALLOWED",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"Refresh not allowed",
	)

	ErrUnauthorized = NewDomainError(
		"UNAUTHORIZED",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"Unauthorized",
	)

	ErrMissingToken = NewDomainError(
		"MISSING_TOKEN",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"Missing token",
	)

	ErrInvalidToken = NewDomainError(
		"INVALID_TOKEN",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"Invalid token",
	)

	ErrCompanyRequired = NewDomainError(
		"COMPANY_REQUIRED",
		CategoryForbidden,
		http.StatusForbidden,
		"Company required",
	)

	ErrUserNotFound = NewDomainError(
		"USER_NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"user not found",
	)

	ErrCompanyAlreadyExists = NewDomainError(
		"COMPANY_EXISTS",
		CategoryValidation,
		http.StatusBadRequest,
		"Company already exists for this user",
	)

	ErrCompanyNotFound = NewDomainError(
		"COMPANY_NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"Company not found for this user.",
	)

	ErrPanVatInUse = NewDomainError(
		"PAN_VAT_IN_USE",
		CategoryConflict,
		http.StatusConflict,
		"PAN/VAT number already registered",
	)

	ErrDepartmentExists = NewDomainError(
		"DEPARTMENT_EXISTS",
		CategoryConflict,
		http.StatusConflict,
		"Department name already exists.",
	)

	ErrDepartmentNotFound = NewDomainError(
		"DEPARTMENT_NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"Department not found.",
	)

	ErrCircuitOpen = NewDomainError(
		"CIRCUIT_OPEN",
		CategoryExternal,
		http.StatusServiceUnavailable,
		"service temporarily unavailable",
	)

	ErrMethodNotAllowed = NewDomainError(
		"METHOD_NOT_ALLOWED",
		CategoryValidation,
		http.StatusMethodNotAllowed,
		"method not allowed",
	)

	ErrTooManyRequests = NewDomainError(
		"RATE_LIMITED",
		CategoryValidation,
		http.StatusTooManyRequests,
		"too many requests",
	)

	ErrDatabaseError = NewDomainError(
		"DATABASE_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"database operation failed",
	)

	ErrInternalError = NewDomainError(
		"INTERNAL_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"internal server error",
	)
)
