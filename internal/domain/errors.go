package domain

import "errors"

// Errors
var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrShelfStockNotFound  = errors.New("shelf stock not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrDuplicatePackage    = errors.New("package already exists")
	ErrRateLimited         = errors.New("provider rate limit exceeded")
	ErrInvalidTransition   = errors.New("invalid order item state transition")
	ErrFaultyOrderNotFound = errors.New("faulty order not found")
	ErrNothingToClaim      = errors.New("no pending queue entries to claim")
)
