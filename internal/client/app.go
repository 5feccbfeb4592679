package client

import (
	"context"
	"log/slog"

	"github.com/congo-pay/signed_send/internal/balance"
	"github.com/congo-pay/signed_send/internal/ledgerclient"
	"github.com/congo-pay/signed_send/internal/logging"
	"github.com/congo-pay/signed_send/internal/notification"
	"github.com/congo-pay/signed_send/internal/transfer"
	"github.com/congo-pay/signed_send/internal/wallet"
)

// LedgerService is the remote ledger as seen by the client.
type LedgerService interface {
	Balance(ctx context.Context, address string) (int64, error)
	Send(ctx context.Context, envelope ledgerclient.SignedEnvelope) (int64, error)
}

// Deps aggregates the collaborators of the application root.
type Deps struct {
	Provider wallet.Provider
	Ledger   LedgerService
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// App is the application root. It owns the displayed balance and wires the
// session's address changes into balance synchronization and the session's
// signer into the transfer workflow.
type App struct {
	Session   *wallet.Session
	Balances  *balance.Sync
	Transfers *transfer.Workflow
}

// New wires the components. A nil Provider means no wallet is available.
func New(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	session := wallet.NewSession(d.Provider, d.Notifier, logger.With("component", "wallet"))
	balances := balance.NewSync(d.Ledger, logger.With("component", "balance"))
	transfers := transfer.NewWorkflow(session, d.Ledger, balances, logger.With("component", "transfer"))

	session.OnAddressChange(balances.Track)

	return &App{Session: session, Balances: balances, Transfers: transfers}
}

// Start connects the wallet. It is called once at application start.
func (a *App) Start(ctx context.Context) error {
	return a.Session.Connect(ctx)
}

// Retry reconnects after a failed or rejected connection.
func (a *App) Retry(ctx context.Context) error {
	return a.Session.RetryConnection(ctx)
}

// Address returns the connected address, if any.
func (a *App) Address() (string, bool) {
	return a.Session.Address()
}

// Balance returns the balance to display.
func (a *App) Balance() int64 {
	return a.Balances.Balance()
}

// Submit runs one transfer and returns the new balance.
func (a *App) Submit(ctx context.Context, amount, recipient string) (int64, error) {
	return a.Transfers.Submit(ctx, amount, recipient)
}

// Wait blocks until in-flight balance queries complete.
func (a *App) Wait() {
	a.Balances.Wait()
}
