package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stocksim/internal/trading"
)

// Stock is one catalog entry. Price is the trade price; the OHLC fields
// mirror whatever the quote source last reported and may be zero.
type Stock struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	PreviousClose decimal.Decimal `json:"previous_close"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetBySymbol(ctx context.Context, symbol string) (Stock, error) {
	var st Stock
	err := s.pool.QueryRow(ctx, `
		select symbol, name, price, open, high, low, previous_close
		from stocks
		where symbol = $1
	`, symbol).Scan(&st.Symbol, &st.Name, &st.Price, &st.Open, &st.High, &st.Low, &st.PreviousClose)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stock{}, trading.NewError(trading.KindStockNotFound, "stock does not exist")
	}
	return st, err
}

func (s *Store) List(ctx context.Context) ([]Stock, error) {
	rows, err := s.pool.Query(ctx, `
		select symbol, name, price, open, high, low, previous_close
		from stocks
		order by symbol
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Stock, 0, 16)
	for rows.Next() {
		var st Stock
		if err := rows.Scan(&st.Symbol, &st.Name, &st.Price, &st.Open, &st.High, &st.Low, &st.PreviousClose); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "select symbol from stocks order by symbol")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// UpdateQuote overwrites a stock's price fields with the latest fetch.
// A zero-price placeholder from a failed fetch is written as-is so the
// staleness is visible to readers.
func (s *Store) UpdateQuote(ctx context.Context, q Quote) error {
	_, err := s.pool.Exec(ctx, `
		update stocks
		set price = $2, open = $3, high = $4, low = $5, previous_close = $6, quoted_at = now()
		where symbol = $1
	`, q.Symbol, q.Price, q.Open, q.High, q.Low, q.PreviousClose)
	return err
}
