package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/congo-pay/signed_send/internal/logging"
	"github.com/congo-pay/signed_send/internal/notification"
)

type stubSigner struct {
	address string
}

func (s stubSigner) Address() string { return s.address }

func (s stubSigner) SignMessage(_ context.Context, raw string) (string, error) {
	return "sig:" + raw, nil
}

type stubProvider struct {
	rejectAccess bool
	signerErr    error
	address      string
	accessCalls  int
}

func (p *stubProvider) RequestAccess(context.Context) error {
	p.accessCalls++
	if p.rejectAccess {
		return ErrConnectionRejected
	}
	return nil
}

func (p *stubProvider) Signer(context.Context) (Signer, error) {
	if p.signerErr != nil {
		return nil, p.signerErr
	}
	return stubSigner{address: p.address}, nil
}

type countingNotifier struct {
	messages []notification.Message
}

func (n *countingNotifier) Send(_ context.Context, msg notification.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

func TestSessionConnect(t *testing.T) {
	provider := &stubProvider{address: "0xA1"}
	notifier := &countingNotifier{}
	session := NewSession(provider, notifier, logging.Discard())

	var published []string
	session.OnAddressChange(func(_ context.Context, address string) {
		if _, ok := session.Signer(); !ok {
			t.Errorf("address %s published before signer was set", address)
		}
		published = append(published, address)
	})

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if session.State() != Connected {
		t.Fatalf("expected connected, got %s", session.State())
	}
	address, ok := session.Address()
	if !ok || address != "0xA1" {
		t.Fatalf("expected address 0xA1, got %q (%v)", address, ok)
	}
	if len(published) != 1 || published[0] != "0xA1" {
		t.Fatalf("expected one published address, got %v", published)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("expected no notices, got %v", notifier.messages)
	}
}

func TestSessionConnectRejected(t *testing.T) {
	provider := &stubProvider{rejectAccess: true, address: "0xA1"}
	notifier := &countingNotifier{}
	session := NewSession(provider, notifier, logging.Discard())

	called := false
	session.OnAddressChange(func(context.Context, string) { called = true })

	err := session.Connect(context.Background())
	if !errors.Is(err, ErrConnectionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if session.State() != ConnectionFailed {
		t.Fatalf("expected connection failed, got %s", session.State())
	}
	if _, ok := session.Address(); ok {
		t.Fatal("expected no address after rejection")
	}
	if _, ok := session.Signer(); ok {
		t.Fatal("expected no signer after rejection")
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("rejection must not alert the user, got %v", notifier.messages)
	}
	if called {
		t.Fatal("no address should be published on rejection")
	}
	if !errors.Is(session.Err(), ErrConnectionRejected) {
		t.Fatalf("expected last error to be rejection, got %v", session.Err())
	}
}

func TestSessionRetryConnection(t *testing.T) {
	provider := &stubProvider{rejectAccess: true, address: "0xB2"}
	session := NewSession(provider, nil, logging.Discard())
	ctx := context.Background()

	if err := session.RetryConnection(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("retry from disconnected should fail, got %v", err)
	}
	if err := session.Connect(ctx); err == nil {
		t.Fatal("expected first connect to fail")
	}

	provider.rejectAccess = false
	if err := session.RetryConnection(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if session.State() != Connected {
		t.Fatalf("expected connected after retry, got %s", session.State())
	}
	if provider.accessCalls != 2 {
		t.Fatalf("expected two access requests, got %d", provider.accessCalls)
	}
	if err := session.Connect(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("connect while connected should fail, got %v", err)
	}
}

func TestSessionSignerFailure(t *testing.T) {
	boom := errors.New("extension crashed")
	provider := &stubProvider{signerErr: boom}
	session := NewSession(provider, nil, logging.Discard())

	if err := session.Connect(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected signer error, got %v", err)
	}
	if session.State() != ConnectionFailed {
		t.Fatalf("expected connection failed, got %s", session.State())
	}
}

func TestSessionProviderUnavailableNotifiesOnce(t *testing.T) {
	notifier := &countingNotifier{}
	session := NewSession(nil, notifier, logging.Discard())
	ctx := context.Background()

	if err := session.Connect(ctx); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
	if session.State() != ConnectionFailed {
		t.Fatalf("expected connection failed, got %s", session.State())
	}
	if err := session.RetryConnection(ctx); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable on retry, got %v", err)
	}

	if len(notifier.messages) != 1 {
		t.Fatalf("expected exactly one notice, got %d", len(notifier.messages))
	}
	if notifier.messages[0].Kind != notification.KindWalletRequired {
		t.Fatalf("unexpected notice kind %s", notifier.messages[0].Kind)
	}
}
