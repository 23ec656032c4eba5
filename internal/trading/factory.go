package trading

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stocksim/internal/types"
)

// New builds the transaction variant matching the kind tag. It never
// touches storage; quantity validation happens here so a bad request
// fails before a unit of work is opened.
func New(kind types.TransactionKind, userID string, stock StockRef, quantity int64, feeRate decimal.Decimal) (Transaction, error) {
	switch kind {
	case types.TransactionBuy:
		return NewBuy(userID, stock, quantity, feeRate)
	case types.TransactionSell:
		return NewSell(userID, stock, quantity)
	default:
		return nil, NewError(KindUnknownType, fmt.Sprintf("unknown transaction type: %s", kind))
	}
}
