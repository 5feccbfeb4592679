package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/congo-pay/signed_send/internal/client"
	"github.com/congo-pay/signed_send/internal/ledgerclient"
	"github.com/congo-pay/signed_send/internal/logging"
	"github.com/congo-pay/signed_send/internal/notification"
	"github.com/congo-pay/signed_send/internal/transfer"
	"github.com/congo-pay/signed_send/internal/wallet"
)

var balanceCmd = &cli.Command{
	Name:      "balance",
	Usage:     "show the balance of the wallet or of the given address",
	ArgsUsage: "[address]",
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Present() {
			ledger := ledgerclient.New(cctx.String(flagLedgerURL), cctx.Duration(flagTimeout))
			balance, err := ledger.Balance(cctx.Context, cctx.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintln(cctx.App.Writer, balance)
			return nil
		}

		app, err := connect(cctx)
		if err != nil {
			return err
		}
		address, _ := app.Address()
		fmt.Fprintf(cctx.App.Writer, "%s %d\n", address, app.Balance())
		return nil
	},
}

var sendCmd = &cli.Command{
	Name:  "send",
	Usage: "sign and submit a transfer",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "whole units to send",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "to",
			Usage:    "recipient address",
			Required: true,
		},
	},
	Action: func(cctx *cli.Context) error {
		app, err := connect(cctx)
		if err != nil {
			return err
		}

		balance, err := app.Submit(cctx.Context, cctx.String("amount"), cctx.String("to"))
		if err != nil {
			if errors.Is(err, transfer.ErrSubmissionRejected) {
				return fmt.Errorf("transfer rejected: %s", app.Transfers.Status().Reason)
			}
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "sent, balance %d\n", balance)
		return nil
	},
}

var keygenCmd = &cli.Command{
	Name:  "keygen",
	Usage: "generate a new wallet key",
	Action: func(cctx *cli.Context) error {
		provider, err := wallet.GenerateKeyProvider()
		if err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "address:     %s\nprivate key: %s\n", provider.Address(), provider.PrivateKeyHex())
		return nil
	},
}

// connect builds the client, connects the wallet and waits for the first
// balance query.
func connect(cctx *cli.Context) (*client.App, error) {
	logger := logging.NewText(cctx.App.ErrWriter, cctx.String(flagLogLevel))

	// provider stays a nil interface when no key is configured.
	var provider wallet.Provider
	if key := cctx.String(flagKey); key != "" {
		var opts []wallet.KeyOption
		if !cctx.Bool(flagYes) {
			opts = append(opts, wallet.WithApprover(promptApprover(os.Stdin, cctx.App.ErrWriter)))
		}
		kp, err := wallet.NewKeyProvider(key, opts...)
		if err != nil {
			return nil, err
		}
		provider = kp
	}

	app := client.New(client.Deps{
		Provider: provider,
		Ledger:   ledgerclient.New(cctx.String(flagLedgerURL), cctx.Duration(flagTimeout)),
		Notifier: printNotifier(cctx.App.ErrWriter),
		Logger:   logger,
	})
	if err := app.Start(cctx.Context); err != nil {
		if errors.Is(err, wallet.ErrProviderUnavailable) {
			return nil, fmt.Errorf("no wallet configured, pass --%s or set WALLET_PRIVATE_KEY", flagKey)
		}
		return nil, err
	}
	app.Wait()
	return app, nil
}

func printNotifier(w io.Writer) notification.Notifier {
	return notification.Func(func(_ context.Context, m notification.Message) error {
		_, err := fmt.Fprintf(w, "notice: %s\n", m.Body)
		return err
	})
}

// promptApprover asks on w and reads a y/n answer from r.
func promptApprover(r io.Reader, w io.Writer) wallet.Approver {
	in := bufio.NewReader(r)
	return func(_ context.Context, req wallet.ApprovalRequest) bool {
		switch req.Kind {
		case wallet.AccessRequest:
			fmt.Fprintf(w, "Connect account %s? [y/N] ", req.Address)
		default:
			fmt.Fprintf(w, "Sign message %s with %s? [y/N] ", req.Message, req.Address)
		}
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
