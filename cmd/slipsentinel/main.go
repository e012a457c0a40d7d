package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "slipsentinel",
		Short:        "Safe slippage estimation for AMM swaps",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the estimation HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("metrics-addr", "", "metrics listen address (empty disables)")
	serveCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the audit store")
	serveCmd.Flags().Uint64("blocks-back", 500, "trailing block window for volatility analysis")
	serveCmd.Flags().StringToString("rpc-urls", nil, "per-chain RPC overrides (chainID=url)")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(serveCmd)

	estimateCmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate slippage for one swap and print JSON",
		RunE:  runEstimate,
	}
	estimateCmd.Flags().Uint64("chain", 1, "chain id")
	estimateCmd.Flags().String("token-in", "", "input token address")
	estimateCmd.Flags().String("token-out", "", "output token address")
	estimateCmd.Flags().String("amount", "", "input amount in smallest units")
	estimateCmd.Flags().String("hint", "", "optional exchange hint")
	estimateCmd.Flags().Uint64("blocks-back", 500, "trailing block window for volatility analysis")
	estimateCmd.Flags().StringToString("rpc-urls", nil, "per-chain RPC overrides (chainID=url)")
	estimateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(estimateCmd)

	routesCmd := &cobra.Command{
		Use:   "routes",
		Short: "List every exchange with a resolvable pair",
		RunE:  runRoutes,
	}
	routesCmd.Flags().Uint64("chain", 1, "chain id")
	routesCmd.Flags().String("token-in", "", "input token address")
	routesCmd.Flags().String("token-out", "", "output token address")
	routesCmd.Flags().StringToString("rpc-urls", nil, "per-chain RPC overrides (chainID=url)")
	routesCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(routesCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
