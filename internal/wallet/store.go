package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stocksim/internal/trading"
)

// Store persists user balances and wallet positions in Postgres and
// supplies the atomic unit of work the trading core runs inside.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx opens a transaction and hands the core a view whose balance and
// position reads take row locks, so concurrent transactions for the
// same user queue up instead of both passing a stale sufficiency check.
// Read committed matters here: the blocked transaction re-reads the row
// as the winner committed it, so a loser fails the sufficiency check
// with insufficient funds instead of aborting on a serialization
// conflict. Either every write commits or none does.
func (s *Store) InTx(ctx context.Context, fn func(trading.Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(&txView{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txView struct {
	tx pgx.Tx
}

func (v *txView) GetUser(ctx context.Context, id string) (trading.UserAccount, error) {
	var u trading.UserAccount
	err := v.tx.QueryRow(ctx, "select id, is_active from users where id = $1", id).Scan(&u.ID, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return trading.UserAccount{}, trading.NewError(trading.KindUserNotFound, "user does not exist")
	}
	return u, err
}

func (v *txView) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var b decimal.Decimal
	err := v.tx.QueryRow(ctx, "select balance from user_balances where user_id = $1 for update", userID).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, trading.NewError(trading.KindUserNotFound, "user balance does not exist")
	}
	return b, err
}

func (v *txView) SetBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	_, err := v.tx.Exec(ctx, "update user_balances set balance = $2, updated_at = now() where user_id = $1", userID, amount)
	return err
}

func (v *txView) Position(ctx context.Context, userID, symbol string) (int64, error) {
	var q int64
	err := v.tx.QueryRow(ctx, "select quantity from wallet_positions where user_id = $1 and symbol = $2 for update", userID, symbol).Scan(&q)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, trading.NewError(trading.KindPositionNotFound, "wallet position not found")
	}
	return q, err
}

func (v *txView) UpsertPosition(ctx context.Context, userID, symbol string, quantity int64) error {
	_, err := v.tx.Exec(ctx, "insert into wallet_positions (user_id, symbol, quantity) values ($1, $2, $3) on conflict (user_id, symbol) do update set quantity = excluded.quantity, updated_at = now()", userID, symbol, quantity)
	return err
}

func (v *txView) DeletePosition(ctx context.Context, userID, symbol string) error {
	_, err := v.tx.Exec(ctx, "delete from wallet_positions where user_id = $1 and symbol = $2", userID, symbol)
	return err
}

func (v *txView) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var p decimal.Decimal
	err := v.tx.QueryRow(ctx, "select price from stocks where symbol = $1", symbol).Scan(&p)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, trading.NewError(trading.KindStockNotFound, "stock does not exist")
	}
	return p, err
}

// Position is a wallet row as the read API returns it, joined with the
// catalog so callers see the current price alongside the holding.
type Position struct {
	Symbol    string          `json:"symbol"`
	StockName string          `json:"stock_name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
}

func (s *Store) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var b decimal.Decimal
	err := s.pool.QueryRow(ctx, "select balance from user_balances where user_id = $1", userID).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, trading.NewError(trading.KindUserNotFound, "user balance does not exist")
	}
	return b, err
}

func (s *Store) ListPositions(ctx context.Context, userID string) ([]Position, error) {
	rows, err := s.pool.Query(ctx, `
		select p.symbol, coalesce(st.name, ''), coalesce(st.price, 0), p.quantity
		from wallet_positions p
		left join stocks st on st.symbol = p.symbol
		where p.user_id = $1
		order by p.symbol
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Position, 0, 8)
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.Symbol, &p.StockName, &p.Price, &p.Quantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
