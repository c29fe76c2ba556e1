package authentic

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidEmail     = "INVALID_EMAIL"
	TextCodeInvalidPassword  = "INVALID_PASSWORD"
	TextCodeUserExists       = "USER_EXISTS"
	TextCodeUserNotFound     = "USER_NOT_FOUND"
	TextCodePasswordMismatch = "PASSWORD_MISMATCH"
	TextCodeUserNotConfirmed = "USER_NOT_CONFIRMED"
	TextCodeAlreadyConfirmed = "ALREADY_CONFIRMED"
	TextCodeTokenMismatch    = "TOKEN_MISMATCH"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeURLRequired      = "URL_REQUIRED"
)

// ErrInvalidEmail is returned when an email fails format validation
var ErrInvalidEmail = goerrors.New("invalid email", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidPassword is returned for passwords shorter than MinPasswordLength
var ErrInvalidPassword = goerrors.New("invalid password", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrUserExists is returned when creating a user whose email is taken
var ErrUserExists = goerrors.New("user exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserExists).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is returned for lookups against unknown emails
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrPasswordMismatch is returned when password verification fails
var ErrPasswordMismatch = goerrors.New("password mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserNotConfirmed blocks login until the email has been confirmed
var ErrUserNotConfirmed = goerrors.New("user not confirmed", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserNotConfirmed).
	WithCode(goerrors.CodeUnauthorized)

// ErrAlreadyConfirmed is returned when a confirm token is replayed
var ErrAlreadyConfirmed = goerrors.New("already confirmed", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyConfirmed).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenMismatch is returned when a one-time token does not match the stored one
var ErrTokenMismatch = goerrors.New("token mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired covers absent and lapsed change tokens, and expired bearer tokens
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenMalformed is returned for bearer tokens that fail signature or structural checks
var ErrTokenMalformed = goerrors.New("invalid or malformed token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty credentials before hashing
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// StatusFromError maps a domain error to the HTTP status the adapter should send.
// Unclassified errors are internal.
func StatusFromError(err error) int {
	if err == nil {
		return 200
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code > 0 {
		return richErr.Code
	}

	return 500
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
