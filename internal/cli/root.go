package cli

import (
	"context"
	"fmt"

	"github.com/rovshanmuradov/datatrade/internal/app"
	"github.com/rovshanmuradov/datatrade/internal/config"
	"github.com/rovshanmuradov/datatrade/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "datatrade",
	Short: "Tokenize datasets and trade data tokens",
	Long: `datatrade turns dataset files into tradable data tokens and swaps
between them through a constant-price AMM with a 0.3% fee.

The wallet, storage network and settlement are simulated; delays and
limits come from the config file or DATATRADE_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logCfg := logger.DefaultConfig()
		logCfg.LogFile = cfg.LogFile
		logCfg.Debug = cfg.DebugLogging || verbose
		switch {
		case cmd == tuiCmd:
			// The terminal belongs to the dashboard.
			log, err = logger.CreateTUILogger(logCfg)
		case verbose:
			log, err = logger.New(logCfg)
		default:
			log, err = logger.CreateFileLogger(logCfg)
		}
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = logger.Sync(log)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to the console as well as the log file")

	swapCmd.Flags().StringVar(&slippageFlag, "slippage", "", "slippage tolerance in percent (default from config)")

	rootCmd.AddCommand(tokensCmd, quoteCmd, tokenizeCmd, swapCmd, tuiCmd)
}

// newApp builds the application for one command run.
func newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, app.Options{Logger: log})
}

// Execute runs the command line given by args.
func Execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
