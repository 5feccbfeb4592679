package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/congo-pay/signed_send/internal/ledger"
)

func TestObserveTransfer(t *testing.T) {
	m, err := NewLedger(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	m.ObserveTransfer(nil)
	m.ObserveTransfer(nil)
	m.ObserveTransfer(fmt.Errorf("post: %w", ledger.ErrInsufficientFunds))
	m.ObserveBalanceQuery()

	if got := testutil.ToFloat64(m.transfers.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok transfers, got %v", got)
	}
	if got := testutil.ToFloat64(m.transfers.WithLabelValues("insufficient_funds")); got != 1 {
		t.Fatalf("expected 1 insufficient funds, got %v", got)
	}
	if got := testutil.ToFloat64(m.balanceQueries); got != 1 {
		t.Fatalf("expected 1 balance query, got %v", got)
	}
}

func TestNilLedgerIsNoop(t *testing.T) {
	var m *Ledger
	m.ObserveTransfer(errors.New("boom"))
	m.ObserveBalanceQuery()
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewLedger(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewLedger(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
