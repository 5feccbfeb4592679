package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/congo-pay/signed_send/internal/config"
)

const (
	flagLedgerURL = "ledger-url"
	flagKey       = "key"
	flagYes       = "yes"
	flagLogLevel  = "log-level"
	flagTimeout   = "timeout"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:  "sendctl",
		Usage: "sign and submit transfers to a signed_send ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagLedgerURL,
				Value: cfg.LedgerURL,
				Usage: "base URL of the ledger service (LEDGER_URL)",
			},
			&cli.StringFlag{
				Name:  flagKey,
				Value: cfg.PrivateKey,
				Usage: "hex private key of the wallet (WALLET_PRIVATE_KEY)",
			},
			&cli.BoolFlag{
				Name:    flagYes,
				Aliases: []string{"y"},
				Usage:   "approve wallet prompts without asking",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Value: cfg.LogLevel,
				Usage: "debug, info, warn or error (LOG_LEVEL)",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: cfg.LedgerTimeout,
				Usage: "per request timeout (LEDGER_TIMEOUT)",
			},
		},
		Commands: []*cli.Command{
			balanceCmd,
			sendCmd,
			keygenCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}
