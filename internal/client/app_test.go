package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/congo-pay/signed_send/internal/ledgerclient"
	"github.com/congo-pay/signed_send/internal/logging"
	"github.com/congo-pay/signed_send/internal/transfer"
	"github.com/congo-pay/signed_send/internal/wallet"
)

type memoryLedger struct {
	mu            sync.Mutex
	balances      map[string]int64
	balanceCalls  map[string]int
	sendCalls     int
	rejectMessage string
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{balances: make(map[string]int64), balanceCalls: make(map[string]int)}
}

func (l *memoryLedger) Balance(_ context.Context, address string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balanceCalls[address]++
	return l.balances[address], nil
}

func (l *memoryLedger) Send(_ context.Context, envelope ledgerclient.SignedEnvelope) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendCalls++
	if l.rejectMessage != "" {
		return 0, &ledgerclient.ServiceError{Status: 400, Message: l.rejectMessage}
	}
	return 42, nil
}

func TestAppConnectSyncsBalance(t *testing.T) {
	provider, err := wallet.GenerateKeyProvider()
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	ledger := newMemoryLedger()
	app := New(Deps{Provider: provider, Ledger: ledger, Logger: logging.Discard()})

	if app.Balance() != 0 {
		t.Fatalf("expected 0 before connecting, got %d", app.Balance())
	}
	if _, err := app.Submit(context.Background(), "5", "0xAB"); !errors.Is(err, transfer.ErrNoSigner) {
		t.Fatalf("expected no signer before connecting, got %v", err)
	}
	if ledger.sendCalls != 0 {
		t.Fatal("expected no send before connecting")
	}

	signerAddress := provider.Address()
	ledger.balances[signerAddress] = 100

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	app.Wait()

	got, ok := app.Address()
	if !ok || got != signerAddress {
		t.Fatalf("expected address %s, got %s", signerAddress, got)
	}
	if app.Balance() != 100 {
		t.Fatalf("expected synced balance 100, got %d", app.Balance())
	}
	if ledger.balanceCalls[signerAddress] != 1 {
		t.Fatalf("expected exactly one balance query, got %d", ledger.balanceCalls[signerAddress])
	}

	balance, err := app.Submit(context.Background(), "5", "0xAB")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if balance != 42 || app.Balance() != 42 {
		t.Fatalf("expected displayed balance 42, got %d / %d", balance, app.Balance())
	}
}

func TestAppRejectedSubmissionKeepsBalance(t *testing.T) {
	provider, _ := wallet.GenerateKeyProvider()
	ledger := newMemoryLedger()
	ledger.rejectMessage = "insufficient funds"
	app := New(Deps{Provider: provider, Ledger: ledger})

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	app.Wait()
	app.Balances.Publish(7)

	if _, err := app.Submit(context.Background(), "5", "0xAB"); err == nil {
		t.Fatal("expected rejection")
	}
	status := app.Transfers.Status()
	if status.State != transfer.Failed || status.Reason != "insufficient funds" {
		t.Fatalf("unexpected status %+v", status)
	}
	if app.Balance() != 7 {
		t.Fatalf("expected balance unchanged at 7, got %d", app.Balance())
	}
}

func TestAppRetryAfterRejection(t *testing.T) {
	allow := false
	provider, _ := wallet.GenerateKeyProvider(wallet.WithApprover(func(context.Context, wallet.ApprovalRequest) bool {
		return allow
	}))
	ledger := newMemoryLedger()
	app := New(Deps{Provider: provider, Ledger: ledger})
	ctx := context.Background()

	if err := app.Start(ctx); !errors.Is(err, wallet.ErrConnectionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if len(ledger.balanceCalls) != 0 {
		t.Fatal("no balance query expected without an address")
	}

	allow = true
	if err := app.Retry(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	app.Wait()
	if app.Session.State() != wallet.Connected {
		t.Fatalf("expected connected, got %s", app.Session.State())
	}
}

func TestAppWithoutProvider(t *testing.T) {
	app := New(Deps{Ledger: newMemoryLedger()})
	if err := app.Start(context.Background()); !errors.Is(err, wallet.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
	if app.Balance() != 0 {
		t.Fatalf("expected balance 0, got %d", app.Balance())
	}
}
