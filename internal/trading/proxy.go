package trading

import "context"

// AuthorizedTransaction gates a transaction on the acting user being
// present and active, then delegates unchanged. It does not repeat the
// wrapped transaction's own validation.
type AuthorizedTransaction struct {
	tx Transaction
}

func Authorize(tx Transaction) *AuthorizedTransaction {
	return &AuthorizedTransaction{tx: tx}
}

func (p *AuthorizedTransaction) UserID() string { return p.tx.UserID() }

func (p *AuthorizedTransaction) Execute(ctx context.Context, store Store) (Result, error) {
	user, err := store.GetUser(ctx, p.tx.UserID())
	if err != nil {
		return Result{}, err
	}
	if !user.Active {
		return Result{}, NewError(KindUserInactive, "user is inactive")
	}
	return p.tx.Execute(ctx, store)
}
