package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/congo-pay/signed_send/internal/ledgerclient"
	"github.com/congo-pay/signed_send/internal/wallet"
)

var (
	// ErrNoSigner indicates no wallet is connected.
	ErrNoSigner = errors.New("no signer connected")
	// ErrInvalidAmount indicates the amount input is not an integer.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSigningRejected indicates the signer declined or failed to sign.
	ErrSigningRejected = errors.New("signing rejected")
	// ErrSubmissionRejected indicates the ledger did not accept the envelope.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrBusy indicates a transfer is already being signed or submitted.
	ErrBusy = errors.New("transfer in progress")
)

// State is a step of the transfer form state machine.
type State int

const (
	Idle State = iota
	Signing
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Signing:
		return "signing"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SignerSource yields the signer of the connected wallet, if any.
type SignerSource interface {
	Signer() (wallet.Signer, bool)
}

// Sender submits signed envelopes to the ledger service.
type Sender interface {
	Send(ctx context.Context, envelope ledgerclient.SignedEnvelope) (int64, error)
}

// BalancePublisher receives the balance reported after a successful transfer.
type BalancePublisher interface {
	Publish(amount int64)
}

// Status is a snapshot of the workflow for the presentation layer.
type Status struct {
	State   State
	Balance int64
	Reason  string
}

// Workflow drives the signed transfer protocol.
type Workflow struct {
	signers   SignerSource
	sender    Sender
	publisher BalancePublisher
	logger    *slog.Logger

	mu      sync.Mutex
	status  Status
	running bool
}

// NewWorkflow builds an idle transfer workflow.
func NewWorkflow(signers SignerSource, sender Sender, publisher BalancePublisher, logger *slog.Logger) *Workflow {
	return &Workflow{signers: signers, sender: sender, publisher: publisher, logger: logger}
}

// Submit validates the input, signs the canonical message, submits it and
// publishes the new balance. On failure the returned error carries the reason
// and the balance is left untouched.
func (w *Workflow) Submit(ctx context.Context, amountInput, recipient string) (int64, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return 0, ErrBusy
	}
	w.running = true
	w.status = Status{State: Idle}
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	signer, ok := w.signers.Signer()
	if !ok {
		return 0, w.fail(ErrNoSigner)
	}
	amount, err := ParseAmount(amountInput)
	if err != nil {
		return 0, w.fail(err)
	}
	raw, err := Request{Amount: amount, Recipient: recipient}.Canonical()
	if err != nil {
		return 0, w.fail(err)
	}

	w.setState(Signing)
	signature, err := signer.SignMessage(ctx, raw)
	if err != nil {
		return 0, w.fail(fmt.Errorf("%w: %w", ErrSigningRejected, err))
	}

	w.setState(Submitting)
	balance, err := w.sender.Send(ctx, ledgerclient.SignedEnvelope{RawMessage: raw, Signature: signature})
	if err != nil {
		var svcErr *ledgerclient.ServiceError
		if errors.As(err, &svcErr) {
			return 0, w.failWithReason(fmt.Errorf("%w: %w", ErrSubmissionRejected, err), svcErr.Message)
		}
		return 0, w.fail(fmt.Errorf("%w: %w", ErrSubmissionRejected, err))
	}

	w.publisher.Publish(balance)
	w.mu.Lock()
	w.status = Status{State: Succeeded, Balance: balance}
	w.mu.Unlock()
	w.logger.Info("transfer succeeded", "from", signer.Address(), "recipient", recipient, "amount", amount, "balance", balance)
	return balance, nil
}

// Status returns the current state and, for terminal states, its outcome.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Acknowledge returns a finished workflow to Idle once the outcome was shown.
func (w *Workflow) Acknowledge() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.State == Succeeded || w.status.State == Failed {
		w.status = Status{State: Idle}
	}
}

func (w *Workflow) setState(s State) {
	w.mu.Lock()
	w.status.State = s
	w.mu.Unlock()
}

func (w *Workflow) fail(err error) error {
	return w.failWithReason(err, err.Error())
}

func (w *Workflow) failWithReason(err error, reason string) error {
	w.mu.Lock()
	w.status = Status{State: Failed, Reason: reason}
	w.mu.Unlock()
	w.logger.Info("transfer failed", "error", err)
	return err
}
