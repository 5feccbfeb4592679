package balance

import (
	"context"
	"log/slog"
	"sync"
)

// Fetcher looks up the ledger balance of an address.
type Fetcher interface {
	Balance(ctx context.Context, address string) (int64, error)
}

// Sync keeps the displayed balance consistent with the connected address.
// Each query carries a generation; only the latest generation may write.
type Sync struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu         sync.Mutex
	generation uint64
	value      int64

	inflight sync.WaitGroup
}

// NewSync builds a balance synchronizer starting at 0.
func NewSync(fetcher Fetcher, logger *slog.Logger) *Sync {
	return &Sync{fetcher: fetcher, logger: logger}
}

// Track issues exactly one query for address. An empty address resolves to 0
// immediately without a network call.
func (s *Sync) Track(ctx context.Context, address string) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if address == "" {
		s.value = 0
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		amount, err := s.fetcher.Balance(ctx, address)
		s.apply(gen, address, amount, err)
	}()
}

func (s *Sync) apply(gen uint64, address string, amount int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debug("discarding stale balance", "address", address, "generation", gen, "current", s.generation)
		return
	}
	if err != nil {
		s.logger.Warn("balance fetch failed", "address", address, "error", err)
		return
	}
	s.value = amount
}

// Publish overwrites the held balance, e.g. with the balance returned by a
// successful transfer. Queries issued before the call become stale.
func (s *Sync) Publish(amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.value = amount
}

// Balance returns the value to display.
func (s *Sync) Balance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Wait blocks until every issued query has completed.
func (s *Sync) Wait() {
	s.inflight.Wait()
}
