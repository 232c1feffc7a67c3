package alert

import "errors"

var (
	ErrNotFound        = errors.New("alert not found")
	ErrInvalidState    = errors.New("alert is not active")
	ErrValidation      = errors.New("validation failed")
	ErrDuplicateActive = errors.New("an active alert of this type already exists")
)
