package errors

import "errors"

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOutOfStock        = errors.New("out of stock")
	ErrItemConsumed      = errors.New("inventory item already consumed")
	ErrAccountBanned     = errors.New("account is banned")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrPaymentGateway    = errors.New("payment gateway error")
	ErrDepositNotPending = errors.New("no deposit awaiting an amount")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNilAccount        = errors.New("account is nil")
	ErrNilItem           = errors.New("inventory item is nil")
)
