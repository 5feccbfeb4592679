package wallet

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable indicates no wallet capability is present in the
	// execution environment.
	ErrProviderUnavailable = errors.New("wallet provider unavailable")

	// ErrConnectionRejected indicates the user declined account access.
	ErrConnectionRejected = errors.New("wallet connection rejected")

	// ErrSigningRejected indicates the user declined to sign a message.
	ErrSigningRejected = errors.New("signing rejected")

	// ErrInvalidState is returned when an operation is not allowed from the
	// current session state.
	ErrInvalidState = errors.New("invalid session state")
)

// Provider is the wallet capability the session negotiates with, e.g. a browser
// extension or a local key store.
type Provider interface {
	// RequestAccess asks the user to grant account access. It fails with an
	// error wrapping ErrConnectionRejected when no account is granted.
	RequestAccess(ctx context.Context) error
	// Signer returns a signer bound to the current account.
	Signer(ctx context.Context) (Signer, error)
}

// Signer produces signatures for one address without revealing its key.
type Signer interface {
	Address() string
	SignMessage(ctx context.Context, rawMessage string) (string, error)
}
