package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"stocksim/internal/types"
)

// Service is the single operation the core exposes: construct a
// transaction via the factory, wrap it in the authorization proxy and
// run it inside one atomic unit of work.
type Service struct {
	db      DB
	feeRate decimal.Decimal
}

func NewService(db DB, feeRate decimal.Decimal) *Service {
	return &Service{db: db, feeRate: feeRate}
}

func (s *Service) Execute(ctx context.Context, kind types.TransactionKind, userID string, stock StockRef, quantity int64) (Result, error) {
	tx, err := New(kind, userID, stock, quantity, s.feeRate)
	if err != nil {
		return Result{}, err
	}
	authorized := Authorize(tx)
	var res Result
	err = s.db.InTx(ctx, func(store Store) error {
		r, err := authorized.Execute(ctx, store)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
