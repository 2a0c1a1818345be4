package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrTestNotFound       = errors.New("test not found")
	ErrRecordNotFound     = errors.New("student test record not found")
	ErrNoContentAvailable = errors.New("no test content available for assignment")
	ErrInvalidPayload     = errors.New("invalid test payload")
)

// ValidationError marks a malformed edit payload, rejected before any write.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}
