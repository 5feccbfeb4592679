package ledger

// SeedBalance is a test helper that sets the balance of an account when using
// the in-memory ledger, bypassing the welcome credit.
func SeedBalance(l Ledger, account string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[account] = amount
	}
}
