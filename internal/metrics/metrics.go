package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/congo-pay/signed_send/internal/ledger"
)

const namespace = "signed_send"

// Ledger collects ledger service counters. A nil *Ledger records nothing.
type Ledger struct {
	transfers      *prometheus.CounterVec
	balanceQueries prometheus.Counter
}

// NewLedger creates the ledger counters and registers them on registerer.
func NewLedger(registerer prometheus.Registerer) (*Ledger, error) {
	m := &Ledger{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "signed transfers by outcome (n)",
		}, []string{"outcome"}),
		balanceQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_queries_total",
			Help:      "balance lookups served (n)",
		}),
	}
	for _, c := range []prometheus.Collector{m.transfers, m.balanceQueries} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveTransfer counts a transfer attempt under its outcome label.
func (m *Ledger) ObserveTransfer(err error) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(Outcome(err)).Inc()
}

// ObserveBalanceQuery counts one served balance lookup.
func (m *Ledger) ObserveBalanceQuery() {
	if m == nil {
		return
	}
	m.balanceQueries.Inc()
}

// Outcome maps a transfer error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return "duplicate"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "rejected"
	}
}
