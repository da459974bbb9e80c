package shell

import (
	"errors"
	"fmt"
)

// Rejections. Parse failures wrap ErrUsage; argument checks against
// session state wrap ErrValidation; missing resources wrap ErrResource.
// A rejected invocation prints the command's usage and changes nothing.
var (
	ErrUsage      = errors.New("usage error")
	ErrValidation = errors.New("invalid argument")
	ErrResource   = errors.New("resource unavailable")
)

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func resourceError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResource, fmt.Sprintf(format, args...))
}

