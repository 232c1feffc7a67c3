package stock

import "errors"

var (
	ErrNotFound          = errors.New("stock item not found")
	ErrInactiveStock     = errors.New("stock item is inactive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrHasOpenRequests   = errors.New("stock item is referenced by open stock requests")
)
