package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rovshanmuradov/datatrade/internal/app"
	"github.com/rovshanmuradov/datatrade/internal/pipeline"
	"github.com/rovshanmuradov/datatrade/internal/swap"
	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/rovshanmuradov/datatrade/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var slippageFlag string

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List the data tokens and their prices",
	Args:  cobra.NoArgs,
	RunE:  runTokens,
}

var quoteCmd = &cobra.Command{
	Use:   "quote FROM TO AMOUNT",
	Short: "Quote a swap without settling it",
	Example: `  datatrade quote ETH DATA1 1
  datatrade quote DATA3 ETH 10`,
	Args: cobra.ExactArgs(3),
	RunE: runQuote,
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize FILE",
	Short: "Upload a dataset and issue a data token for it",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

var swapCmd = &cobra.Command{
	Use:   "swap FROM TO AMOUNT",
	Short: "Swap one token for another within a slippage tolerance",
	Args:  cobra.ExactArgs(3),
	RunE:  runSwap,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive dashboard",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

// withApp runs fn against a fresh application and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

func runTokens(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app.App) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-8s %-22s %12s %8s\n", "SYMBOL", "NAME", "PRICE", "24H")
		for _, t := range a.Catalog.Snapshot().Tokens() {
			change := t.Change24h.StringFixed(1) + "%"
			if !t.Change24h.IsNegative() {
				change = "+" + change
			}
			fmt.Fprintf(out, "%-8s %-22s %12s %8s\n", t.Symbol, t.Name, "$"+t.Price.StringFixed(2), change)
		}
		return nil
	})
}

func runQuote(cmd *cobra.Command, args []string) error {
	amount, err := swap.ParseAmount(args[2])
	if err != nil {
		return err
	}
	return withApp(cmd, func(_ context.Context, a *app.App) error {
		quote, err := a.Quoter.QuoteSymbols(args[0], args[1], amount)
		if err != nil {
			return err
		}
		printQuote(cmd, quote)
		return nil
	})
}

func runTokenize(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect wallet: %w", err)
		}

		out := cmd.OutOrStdout()
		asset, err := a.Tokenize(ctx, args[0], func(p pipeline.Progress) {
			if p.Stage == pipeline.Uploading {
				fmt.Fprintf(out, "%s (%s)\n", p.File.Name, humanize.Bytes(uint64(p.File.Size)))
			}
			fmt.Fprintf(out, "[%3d%%] %s\n", p.Percent, p.Message)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Asset: %s\n", asset)
		return nil
	})
}

func runSwap(cmd *cobra.Command, args []string) error {
	amount, err := swap.ParseAmount(args[2])
	if err != nil {
		return err
	}
	slippage, err := slippageConfig()
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect wallet: %w", err)
		}
		quote, tx, err := a.Swap(ctx, args[0], args[1], amount, slippage)
		if err != nil {
			return err
		}
		printQuote(cmd, quote)
		fmt.Fprintf(cmd.OutOrStdout(), "Minimum:  %s\nTx:       %s\n",
			types.MinAmountOut(quote.OutputAmount, slippage).StringFixed(swap.AmountPlaces), tx)
		return nil
	})
}

func runTUI(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		return ui.Run(ctx, a, log)
	})
}

func slippageConfig() (types.SlippageConfig, error) {
	s := strings.TrimSuffix(strings.TrimSpace(slippageFlag), "%")
	if s == "" {
		s = cfg.Slippage
	}
	percent, err := decimal.NewFromString(s)
	if err != nil {
		return types.SlippageConfig{}, fmt.Errorf("%w: invalid slippage %q", types.ErrInvalidInput, slippageFlag)
	}
	return types.PercentSlippage(percent)
}

func printQuote(cmd *cobra.Command, q swap.SwapQuote) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s %s\nRate:     %s\nFee:      %s%%\n",
		q.InputAmount, q.InputToken.Symbol,
		q.OutputAmount.StringFixed(swap.AmountPlaces), q.OutputToken.Symbol,
		swap.FormatRate(q.InputToken, q.OutputToken),
		q.FeeRate.Shift(2))
}
