package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/congo-pay/signed_send/internal/notification"
)

// State is a step of the wallet connection state machine.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	ConnectionFailed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnectionFailed:
		return "connection_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const walletRequiredNotice = "This app requires a wallet to work. Install a wallet provider and reload."

// AddressListener is called with the newly published address, or "" when the
// address becomes absent.
type AddressListener func(ctx context.Context, address string)

// Session owns the connection state: the connected address and its signer.
type Session struct {
	provider Provider
	notifier notification.Notifier
	logger   *slog.Logger

	mu        sync.RWMutex
	state     State
	address   string
	signer    Signer
	lastErr   error
	notified  bool
	listeners []AddressListener
}

// NewSession builds a disconnected session. provider may be nil when no wallet
// capability is available; Connect then fails with ErrProviderUnavailable.
func NewSession(provider Provider, notifier notification.Notifier, logger *slog.Logger) *Session {
	return &Session{provider: provider, notifier: notifier, logger: logger, state: Disconnected}
}

// OnAddressChange registers fn to run after every change of the published address.
func (s *Session) OnAddressChange(fn AddressListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Connect runs the handshake from the Disconnected state.
func (s *Session) Connect(ctx context.Context) error {
	return s.connect(ctx, Disconnected)
}

// RetryConnection re-enters Connecting after a failed or rejected handshake.
func (s *Session) RetryConnection(ctx context.Context) error {
	return s.connect(ctx, ConnectionFailed)
}

func (s *Session) connect(ctx context.Context, from State) error {
	s.mu.Lock()
	if s.state != from {
		current := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot connect from %s", ErrInvalidState, current)
	}
	if s.provider == nil {
		s.state = ConnectionFailed
		s.lastErr = ErrProviderUnavailable
		notify := !s.notified
		s.notified = true
		s.mu.Unlock()

		s.logger.Warn("wallet provider unavailable")
		if notify && s.notifier != nil {
			if err := s.notifier.Send(ctx, notification.Message{Kind: notification.KindWalletRequired, Body: walletRequiredNotice}); err != nil {
				s.logger.Warn("send wallet notice", "error", err)
			}
		}
		return ErrProviderUnavailable
	}
	s.state = Connecting
	s.lastErr = nil
	s.mu.Unlock()

	signer, err := s.handshake(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = ConnectionFailed
		s.lastErr = err
		s.mu.Unlock()
		if errors.Is(err, ErrConnectionRejected) {
			s.logger.Info("wallet connection rejected by user", "error", err)
		} else {
			s.logger.Warn("wallet connection failed", "error", err)
		}
		return err
	}

	address := signer.Address()
	s.mu.Lock()
	s.state = Connected
	s.address = address
	s.signer = signer
	changed := address != ""
	listeners := append([]AddressListener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Info("wallet connected", "address", address)
	if changed {
		for _, fn := range listeners {
			fn(ctx, address)
		}
	}
	return nil
}

func (s *Session) handshake(ctx context.Context) (Signer, error) {
	if err := s.provider.RequestAccess(ctx); err != nil {
		return nil, fmt.Errorf("request access: %w", err)
	}
	signer, err := s.provider.Signer(ctx)
	if err != nil {
		return nil, fmt.Errorf("get signer: %w", err)
	}
	if signer == nil {
		return nil, fmt.Errorf("get signer: %w", ErrConnectionRejected)
	}
	return signer, nil
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Address returns the connected address, if any.
func (s *Session) Address() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address, s.signer != nil
}

// Signer returns the connected signer, if any.
func (s *Session) Signer() (Signer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signer, s.signer != nil
}

// Err returns the error of the last failed handshake.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
