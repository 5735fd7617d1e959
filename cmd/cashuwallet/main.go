// Command cashuwallet is a CLI front end over the wallet orchestrator:
// mint, send, receive, and pay Lightning invoices with ecash held
// locally in a bolt-backed store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/cashu-go/walletcore/cashu"
	"github.com/cashu-go/walletcore/wallet"
)

const debugFlag = "debug"

var w *wallet.Wallet

func setupWallet(ctx *cli.Context) error {
	config := wallet.LoadConfig(ctx.String("wallet-dir"))
	config.Debug = ctx.Bool(debugFlag)

	var err error
	w, err = wallet.LoadWallet(config)
	if err != nil {
		return fmt.Errorf("failed to load wallet: %w", err)
	}
	return nil
}

func main() {
	slog.SetDefault(wallet.NewLogger(os.Stderr, false))

	app := &cli.App{
		Name:  "cashuwallet",
		Usage: "ecash wallet core CLI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "wallet-dir",
				Usage: "directory holding wallet.db and .env",
			},
			&cli.BoolFlag{
				Name:  debugFlag,
				Usage: "enable debug-level logging",
			},
		},
		Commands: []*cli.Command{
			balanceCmd,
			mintCmd,
			sendCmd,
			receiveCmd,
			payCmd,
			lockCmd,
			decodeCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var balanceCmd = &cli.Command{
	Name:   "balance",
	Usage:  "show wallet balance",
	Before: setupWallet,
	Action: func(ctx *cli.Context) error {
		fmt.Println(w.Status())
		return nil
	},
}

const paymentHashFlag = "payment-hash"

var mintCmd = &cli.Command{
	Name:      "mint",
	Usage:     "mint new ecash for the given amount, or redeem after paying the invoice",
	ArgsUsage: "AMOUNT",
	Before:    setupWallet,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: paymentHashFlag, Usage: "payment hash of a paid invoice to redeem"},
	},
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("specify an amount to mint")
		}

		amount, err := strconv.ParseUint(args.First(), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}

		if !ctx.IsSet(paymentHashFlag) {
			quote, err := w.RequestMint(context.Background(), amount)
			if err != nil {
				return err
			}
			fmt.Printf("invoice: %s\npay it, then run: cashuwallet mint %d --%s %s\n", quote.PaymentRequest, amount, paymentHashFlag, quote.Hash)
			return nil
		}

		proofs, err := w.Mint(context.Background(), amount, ctx.String(paymentHashFlag))
		if err != nil {
			return err
		}
		fmt.Printf("%d sats minted\n", proofs.Amount())
		return nil
	},
}

var sendCmd = &cli.Command{
	Name:      "send",
	Usage:     "create a token for the given amount",
	ArgsUsage: "AMOUNT",
	Before:    setupWallet,
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("specify an amount to send")
		}

		amount, err := strconv.ParseUint(args.First(), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}

		_, send, err := w.SplitToSend(context.Background(), amount, "")
		if err != nil {
			return err
		}

		if _, err := w.SetReserved(send, true); err != nil {
			return err
		}

		token, err := cashu.EncodeToken(send)
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

var receiveCmd = &cli.Command{
	Name:      "receive",
	Usage:     "redeem a token",
	ArgsUsage: "TOKEN",
	Before:    setupWallet,
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("token not provided")
		}

		proofs, err := cashu.DecodeToken(args.First())
		if err != nil {
			return err
		}

		redeemed, err := w.Redeem(context.Background(), proofs, "", "")
		if err != nil {
			return err
		}

		fmt.Printf("%d sats received\n", redeemed.Amount())
		return nil
	},
}

var payCmd = &cli.Command{
	Name:      "pay",
	Usage:     "pay a lightning invoice from wallet proofs",
	ArgsUsage: "INVOICE",
	Before:    setupWallet,
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("specify a lightning invoice to pay")
		}
		invoice := args.First()

		fee, err := w.CheckFees(context.Background(), invoice)
		if err != nil {
			return err
		}

		_, send, err := w.SplitToSend(context.Background(), fee, "")
		if err != nil {
			return err
		}

		if err := w.PayLightning(context.Background(), send, invoice); err != nil {
			return err
		}

		fmt.Println("invoice paid")
		return nil
	},
}

var lockCmd = &cli.Command{
	Name:   "lock",
	Usage:  "generate a P2SH lock that ecash can be sent to",
	Before: setupWallet,
	Action: func(ctx *cli.Context) error {
		script, err := w.CreateP2SHLock()
		if err != nil {
			return err
		}
		fmt.Printf("address: %s\nscript: %s\nsignature: %s\n", script.Address, script.Script, script.Signature)
		return nil
	},
}

var decodeCmd = &cli.Command{
	Name:      "decode",
	Usage:     "decode a token without a wallet",
	ArgsUsage: "TOKEN",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if args.Len() < 1 {
			return errors.New("token not provided")
		}

		proofs, err := cashu.DecodeToken(args.First())
		if err != nil {
			return err
		}

		fmt.Printf("%d proofs, %d sats total\n", len(proofs), proofs.Amount())
		return nil
	},
}
