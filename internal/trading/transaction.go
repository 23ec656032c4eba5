package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"stocksim/internal/valuation"
)

// UserAccount is the slice of the identity record the core reads.
type UserAccount struct {
	ID     string
	Active bool
}

// StockRef identifies the traded stock. Symbol is always set; Quote, when
// present, is a caller-supplied price that overrides the catalog lookup.
type StockRef struct {
	Symbol string
	Quote  *decimal.Decimal
}

// Store is the account/wallet collaborator the core reads and mutates.
// All methods run inside the single unit of work provided by DB.InTx,
// so a returned error rolls every prior mutation back.
type Store interface {
	GetUser(ctx context.Context, id string) (UserAccount, error)
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	SetBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	Position(ctx context.Context, userID, symbol string) (int64, error)
	UpsertPosition(ctx context.Context, userID, symbol string, quantity int64) error
	DeletePosition(ctx context.Context, userID, symbol string) error
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// DB runs one atomic unit of work over the store. Concurrent units for
// the same user must serialize on the balance row.
type DB interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

type Result struct {
	NewBalance decimal.Decimal
}

// Transaction is one buy or sell intent. It is constructed, executed
// exactly once inside a unit of work, and discarded.
type Transaction interface {
	UserID() string
	Execute(ctx context.Context, store Store) (Result, error)
}

type base struct {
	userID   string
	stock    StockRef
	quantity int64
	strategy valuation.Strategy
}

func (b *base) UserID() string { return b.userID }

func (b *base) setQuantity(q int64) error {
	if q <= 0 {
		return NewError(KindInvalidQuantity, "quantity must be greater than zero")
	}
	b.quantity = q
	return nil
}

func (b *base) resolvePrice(ctx context.Context, store Store) (decimal.Decimal, error) {
	if b.stock.Quote != nil {
		return *b.stock.Quote, nil
	}
	return store.Price(ctx, b.stock.Symbol)
}

type BuyTransaction struct {
	base
}

func NewBuy(userID string, stock StockRef, quantity int64, feeRate decimal.Decimal) (*BuyTransaction, error) {
	t := &BuyTransaction{base: base{
		userID:   userID,
		stock:    stock,
		strategy: valuation.Fee{Rate: feeRate},
	}}
	if err := t.setQuantity(quantity); err != nil {
		return nil, err
	}
	return t, nil
}

// Execute debits the fee-inclusive cost and adds the bought quantity to
// the wallet position. Sufficiency is checked against the fee-inclusive
// total before anything is written.
func (t *BuyTransaction) Execute(ctx context.Context, store Store) (Result, error) {
	if _, err := store.GetUser(ctx, t.userID); err != nil {
		return Result{}, err
	}
	if t.quantity <= 0 {
		return Result{}, NewError(KindInvalidQuantity, "quantity must be greater than zero")
	}
	price, err := t.resolvePrice(ctx, store)
	if err != nil {
		return Result{}, err
	}
	total := t.strategy.Calculate(price, t.quantity)
	balance, err := store.Balance(ctx, t.userID)
	if err != nil {
		return Result{}, err
	}
	if balance.LessThan(total) {
		return Result{}, NewError(KindInsufficientFunds, "insufficient funds for purchase")
	}
	newBalance := balance.Sub(total)
	if err := store.SetBalance(ctx, t.userID, newBalance); err != nil {
		return Result{}, err
	}
	held, err := store.Position(ctx, t.userID, t.stock.Symbol)
	if err != nil {
		if KindOf(err) != KindPositionNotFound {
			return Result{}, err
		}
		held = 0
	}
	if err := store.UpsertPosition(ctx, t.userID, t.stock.Symbol, held+t.quantity); err != nil {
		return Result{}, err
	}
	return Result{NewBalance: newBalance}, nil
}

type SellTransaction struct {
	base
}

func NewSell(userID string, stock StockRef, quantity int64) (*SellTransaction, error) {
	t := &SellTransaction{base: base{
		userID:   userID,
		stock:    stock,
		strategy: valuation.Plain{},
	}}
	if err := t.setQuantity(quantity); err != nil {
		return nil, err
	}
	return t, nil
}

// Execute credits plain proceeds (no fee) and shrinks the position,
// deleting it when the whole holding is sold.
func (t *SellTransaction) Execute(ctx context.Context, store Store) (Result, error) {
	if _, err := store.GetUser(ctx, t.userID); err != nil {
		return Result{}, err
	}
	held, err := store.Position(ctx, t.userID, t.stock.Symbol)
	if err != nil {
		return Result{}, err
	}
	balance, err := store.Balance(ctx, t.userID)
	if err != nil {
		return Result{}, err
	}
	if t.quantity <= 0 || t.quantity > held {
		return Result{}, NewError(KindInvalidQuantity, "invalid quantity to sell")
	}
	price, err := t.resolvePrice(ctx, store)
	if err != nil {
		return Result{}, err
	}
	proceeds := t.strategy.Calculate(price, t.quantity)
	remaining := held - t.quantity
	if remaining == 0 {
		if err := store.DeletePosition(ctx, t.userID, t.stock.Symbol); err != nil {
			return Result{}, err
		}
	} else {
		if err := store.UpsertPosition(ctx, t.userID, t.stock.Symbol, remaining); err != nil {
			return Result{}, err
		}
	}
	newBalance := balance.Add(proceeds)
	if err := store.SetBalance(ctx, t.userID, newBalance); err != nil {
		return Result{}, err
	}
	return Result{NewBalance: newBalance}, nil
}
