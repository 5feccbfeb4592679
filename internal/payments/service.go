package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/signed_send/internal/ledger"
	"github.com/congo-pay/signed_send/internal/metrics"
	"github.com/congo-pay/signed_send/internal/notification"
)

var (
	// ErrInvalidSignature indicates the envelope signature or message is malformed.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidAddress indicates a malformed hex address.
	ErrInvalidAddress = errors.New("address is invalid")
)

// Service verifies signed envelopes and posts them to the ledger.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
	metrics  *metrics.Ledger
	logger   *slog.Logger
}

// NewService constructs a payment service. notifier and m may be nil.
func NewService(ledger ledger.Ledger, notifier notification.Notifier, m *metrics.Ledger, logger *slog.Logger) *Service {
	return &Service{ledger: ledger, notifier: notifier, metrics: m, logger: logger}
}

// SendInput captures a submitted envelope and its optional client identifier.
type SendInput struct {
	Envelope   Envelope
	ClientTxID string
}

// SendResult describes the ledger outcome of a signed transfer.
type SendResult struct {
	TransactionID string
	Sender        string
	Balance       int64
	CompletedAt   time.Time
}

// Balance returns the balance of a hex address.
func (s *Service) Balance(ctx context.Context, address string) (int64, error) {
	code, err := ParseAddress(address)
	if err != nil {
		return 0, err
	}
	balance, err := s.ledger.Balance(ctx, code)
	if err != nil {
		return 0, err
	}
	s.metrics.ObserveBalanceQuery()
	return balance, nil
}

// Send verifies the envelope, recovers the sender and moves the funds.
func (s *Service) Send(ctx context.Context, input SendInput) (SendResult, error) {
	res, err := s.send(ctx, input)
	s.metrics.ObserveTransfer(err)
	return res, err
}

func (s *Service) send(ctx context.Context, input SendInput) (SendResult, error) {
	sender, req, err := input.Envelope.Open()
	if err != nil {
		return SendResult{}, err
	}
	recipient, err := ParseAddress(req.Recipient)
	if err != nil {
		return SendResult{}, err
	}
	if req.Amount <= 0 {
		return SendResult{}, ledger.ErrInvalidAmount
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.New().String()
	}

	from := accountCode(sender)
	res, err := s.ledger.Transfer(ctx, from, recipient, input.ClientTxID, req.Amount)
	if err != nil {
		return SendResult{}, err
	}

	outcome := SendResult{
		TransactionID: res.TransactionID,
		Sender:        from,
		Balance:       res.FromBalance,
		CompletedAt:   time.Now().UTC(),
	}
	s.logger.Info("transfer posted", "transaction_id", res.TransactionID, "from", from, "to", recipient, "amount", req.Amount)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: recipient,
			Body:        fmt.Sprintf("You received %d from %s", req.Amount, from),
		})
	}

	return outcome, nil
}
