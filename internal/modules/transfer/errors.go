package transfer

import "errors"

var (
	ErrNotFound          = errors.New("stock request not found")
	ErrInvalidTransition = errors.New("invalid stock request transition")
	ErrValidation        = errors.New("validation failed")
)
