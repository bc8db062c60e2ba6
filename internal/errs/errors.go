package errs

import "errors"

// ErrInvalid marks configuration or input that fails validation.
var ErrInvalid = errors.New("invalid")
