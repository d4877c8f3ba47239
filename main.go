package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"car-sales-dashboard/config"
	"car-sales-dashboard/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	dataPath string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Cars' sales and ads dashboard",
		Long: `dashboard loads a used-vehicle listings CSV, derives manufacturer, vehicle age,
mileage per year and posting month, and explores the result through grouped histograms.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "listings CSV (default: $DATA_PATH or ./vehicles_us.csv)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(storeCmd())
	rootCmd.AddCommand(snapshotCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cfg = config.Load()
	if dataPath != "" {
		cfg.DataPath = dataPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger = utils.NewLogger(utils.ParseLevel(cfg.LogLevel))
	return nil
}
