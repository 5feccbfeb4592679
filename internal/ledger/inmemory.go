package ledger

import (
	"context"
	"sync"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	welcome      int64
	balances     map[string]int64
	transactions map[string]TransactionResult
}

// NewInMemory creates a concurrency-safe in-memory ledger granting
// welcomeCredit to every new account.
func NewInMemory(welcomeCredit int64) Ledger {
	return &inMemoryLedger{
		welcome:      welcomeCredit,
		balances:     make(map[string]int64),
		transactions: make(map[string]TransactionResult),
	}
}

func (l *inMemoryLedger) Balance(_ context.Context, account string) (int64, error) {
	l.mu.RLock()
	balance, exists := l.balances[account]
	l.mu.RUnlock()
	if exists {
		return balance, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openLocked(account), nil
}

// openLocked returns the balance of account, crediting it first if new.
func (l *inMemoryLedger) openLocked(account string) int64 {
	balance, exists := l.balances[account]
	if !exists {
		balance = l.welcome
		l.balances[account] = balance
	}
	return balance
}

func (l *inMemoryLedger) Transfer(_ context.Context, from, to, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := kindTransfer + ":" + clientTxID
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	if l.openLocked(from) < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}
	l.openLocked(to)

	l.balances[from] -= amount
	l.balances[to] += amount

	res := TransactionResult{
		TransactionID: key,
		FromBalance:   l.balances[from],
		ToBalance:     l.balances[to],
	}
	l.transactions[key] = res
	return res, nil
}
