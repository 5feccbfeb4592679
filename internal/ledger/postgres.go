package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the double-entry tables used by PostgresLedger.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id   UUID PRIMARY KEY,
    code TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS transactions (
    id           UUID PRIMARY KEY,
    client_tx_id TEXT NOT NULL,
    kind         TEXT NOT NULL,
    status       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (client_tx_id, kind)
);
CREATE TABLE IF NOT EXISTS entries (
    id             UUID PRIMARY KEY,
    transaction_id UUID NOT NULL REFERENCES transactions (id),
    account_id     UUID NOT NULL REFERENCES accounts (id),
    amount         BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_account_id_idx ON entries (account_id);`

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db      *pgxpool.Pool
	welcome int64
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool, welcomeCredit int64) *PostgresLedger {
	return &PostgresLedger{db: db, welcome: welcomeCredit}
}

// EnsureSchema creates the ledger tables if they are missing.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Balance returns the summed balance for account, opening it with the welcome
// credit if it has never been seen.
func (l *PostgresLedger) Balance(ctx context.Context, account string) (int64, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountID, err := l.openAccount(ctx, tx, account)
	if err != nil {
		return 0, err
	}
	balance, err := balanceForAccount(ctx, tx, accountID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// Transfer records a balanced posting between two accounts.
func (l *PostgresLedger) Transfer(ctx context.Context, from, to, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock both rows in a fixed order so opposite transfers cannot deadlock.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	ids := make(map[string]uuid.UUID, 2)
	for _, code := range []string{first, second} {
		if _, done := ids[code]; done {
			continue
		}
		id, err := l.openAccount(ctx, tx, code)
		if err != nil {
			return TransactionResult{}, err
		}
		ids[code] = id
	}
	fromAccountID, toAccountID := ids[from], ids[to]

	const existingTxQuery = `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var existingTxID uuid.UUID
	if err := tx.QueryRow(ctx, existingTxQuery, clientTxID, kindTransfer).Scan(&existingTxID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return TransactionResult{}, err
		}
	} else {
		res, err := resultFor(ctx, tx, existingTxID, fromAccountID, toAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return res, ErrDuplicateTransaction
	}

	fromBalance, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	txID, err := postTransaction(ctx, tx, clientTxID, kindTransfer, fromAccountID, toAccountID, amount)
	if err != nil {
		return TransactionResult{}, err
	}

	res, err := resultFor(ctx, tx, txID, fromAccountID, toAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}
	return res, nil
}

// openAccount locks the account row, creating and crediting it if new.
func (l *PostgresLedger) openAccount(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING RETURNING id`, uuid.New(), code).Scan(&id)
	switch {
	case err == nil:
		if l.welcome > 0 {
			mintID, err := mintAccount(ctx, tx)
			if err != nil {
				return uuid.Nil, err
			}
			if _, err := postTransaction(ctx, tx, code, kindWelcome, mintID, id, l.welcome); err != nil {
				return uuid.Nil, fmt.Errorf("welcome credit %s: %w", code, err)
			}
		}
		return id, nil
	case errors.Is(err, pgx.ErrNoRows):
		if err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`, code).Scan(&id); err != nil {
			return uuid.Nil, fmt.Errorf("lock account %s: %w", code, err)
		}
		return id, nil
	default:
		return uuid.Nil, fmt.Errorf("open account %s: %w", code, err)
	}
}

func mintAccount(ctx context.Context, tx pgx.Tx) (uuid.UUID, error) {
	if _, err := tx.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), MintAccountCode); err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE code = $1`, MintAccountCode).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func postTransaction(ctx context.Context, tx pgx.Tx, clientTxID, kind string, fromID, toID uuid.UUID, amount int64) (uuid.UUID, error) {
	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, statusPosted); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, fromID, -amount); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, toID, amount); err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

func resultFor(ctx context.Context, tx pgx.Tx, txID, fromID, toID uuid.UUID) (TransactionResult, error) {
	fromBal, err := balanceForAccount(ctx, tx, fromID)
	if err != nil {
		return TransactionResult{}, err
	}
	toBal, err := balanceForAccount(ctx, tx, toID)
	if err != nil {
		return TransactionResult{}, err
	}
	return TransactionResult{TransactionID: txID.String(), FromBalance: fromBal, ToBalance: toBal}, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}
