package domain

import (
	"fmt"

	apperrors "github.com/Mark-AImagineers/NoteKo/pkg/errors"
)

// Domain failures. Each wraps the generic kind it belongs to, so both
// errors.Is(err, ErrDuplicateEmail) and errors.Is(err, apperrors.ErrAlreadyExists)
// hold.
var (
	ErrDuplicateEmail     = fmt.Errorf("email already registered: %w", apperrors.ErrAlreadyExists)
	ErrWeakPassword       = fmt.Errorf("weak password: %w", apperrors.ErrInvalidInput)
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", apperrors.ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("token has expired: %w", apperrors.ErrUnauthorized)
	ErrTokenMalformed     = fmt.Errorf("malformed token: %w", apperrors.ErrUnauthorized)
	ErrTokenInvalid       = fmt.Errorf("invalid token: %w", apperrors.ErrUnauthorized)
	ErrWrongTokenType     = fmt.Errorf("invalid token type: %w", apperrors.ErrUnauthorized)
	ErrUserNotFound       = fmt.Errorf("user not found: %w", apperrors.ErrNotFound)
	ErrRateLimited        = fmt.Errorf("rate limit exceeded: %w", apperrors.ErrTooManyRequests)
)
