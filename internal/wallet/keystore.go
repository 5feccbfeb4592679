package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// RequestKind says what the user is asked to approve.
type RequestKind string

const (
	AccessRequest RequestKind = "access"
	SignRequest   RequestKind = "sign"
)

// ApprovalRequest is shown to the user before the key is used.
type ApprovalRequest struct {
	Kind    RequestKind
	Address string
	Message string
}

// Approver decides whether the user grants a request. Returning false models
// the user declining in the wallet UI.
type Approver func(ctx context.Context, req ApprovalRequest) bool

// KeyOption configures a KeyProvider.
type KeyOption func(*KeyProvider)

// WithApprover installs an approval hook. The default grants everything.
func WithApprover(fn Approver) KeyOption {
	return func(p *KeyProvider) { p.approve = fn }
}

// KeyProvider is a Provider backed by a single in-process secp256k1 key. It
// signs messages the way browser wallets do for personal_sign (EIP-191).
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address string
	approve Approver

	mu      sync.Mutex
	granted bool
}

// NewKeyProvider parses a hex encoded private key, with or without 0x prefix.
func NewKeyProvider(hexKey string, opts ...KeyOption) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return newKeyProvider(key, opts...), nil
}

// GenerateKeyProvider creates a provider around a fresh random key.
func GenerateKeyProvider(opts ...KeyOption) (*KeyProvider, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newKeyProvider(key, opts...), nil
}

func newKeyProvider(key *ecdsa.PrivateKey, opts ...KeyOption) *KeyProvider {
	p := &KeyProvider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		approve: func(context.Context, ApprovalRequest) bool { return true },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestAccess asks the approver to expose the account.
func (p *KeyProvider) RequestAccess(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.approve(ctx, ApprovalRequest{Kind: AccessRequest, Address: p.address}) {
		return ErrConnectionRejected
	}
	p.mu.Lock()
	p.granted = true
	p.mu.Unlock()
	return nil
}

// Signer returns the signer for the key once access has been granted.
func (p *KeyProvider) Signer(_ context.Context) (Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.granted {
		return nil, ErrConnectionRejected
	}
	return &keySigner{provider: p}, nil
}

// Address returns the EIP-55 checksummed address of the key.
func (p *KeyProvider) Address() string {
	return p.address
}

// PrivateKeyHex exports the key, e.g. to persist a generated one.
func (p *KeyProvider) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(p.key))
}

type keySigner struct {
	provider *KeyProvider
}

func (s *keySigner) Address() string {
	return s.provider.address
}

// SignMessage returns the 0x-prefixed r||s||v signature over the EIP-191 hash
// of rawMessage, with v in {27, 28}.
func (s *keySigner) SignMessage(ctx context.Context, rawMessage string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := s.provider
	if !p.approve(ctx, ApprovalRequest{Kind: SignRequest, Address: p.address, Message: rawMessage}) {
		return "", ErrSigningRejected
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(rawMessage)), p.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
