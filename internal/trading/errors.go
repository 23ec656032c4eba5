package trading

import "errors"

type Kind string

const (
	KindUserNotFound      Kind = "user_not_found"
	KindUserInactive      Kind = "user_inactive"
	KindInvalidQuantity   Kind = "invalid_quantity"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindPositionNotFound  Kind = "position_not_found"
	KindStockNotFound     Kind = "stock_not_found"
	KindUnknownType       Kind = "unknown_transaction_type"
	KindInternal          Kind = "internal"
)

// Error is a recoverable transaction failure surfaced to the caller as a
// kind plus a human-readable message. It never crashes the process.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf classifies any error; failures outside the known set (rolled
// back commits, driver errors) report as KindInternal.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}
