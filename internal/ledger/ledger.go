package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrInvalidAmount indicates a non-positive transfer amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

const (
	// DefaultWelcomeCredit is granted to an account the first time it is seen.
	DefaultWelcomeCredit int64 = 100
	// MintAccountCode is the counter account of welcome credits.
	MintAccountCode = "mint:welcome"

	kindTransfer = "transfer"
	kindWelcome  = "welcome"
	statusPosted = "completed"
)

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// Ledger defines the contract implemented by ledger backends. Accounts are
// opened lazily with the welcome credit on first use.
type Ledger interface {
	Balance(ctx context.Context, account string) (int64, error)
	Transfer(ctx context.Context, from, to, clientTxID string, amount int64) (TransactionResult, error)
}
