package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/sheet-extractor/internal/common"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "sheetx",
		Short: "Turn photos of handwritten sheets into spreadsheets",
		Long: `sheetx serves a small authenticated web app that sends a sheet photo to a
vision model, converts the returned JSON into an .xlsx workbook and keeps a
ledger of every submission.

Available subcommands:
  serve     - Run the web app
  history   - Query the submission ledger
  materials - Manage the raw-material list used by the constrained prompt`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (overrides SHEETX_CONFIG)")
	cmd.AddCommand(newServeCmd(opts), newHistoryCmd(opts), newMaterialsCmd(opts))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration honoring the --config flag.
func (o *rootOptions) loadConfig() (*common.Config, error) {
	if o.configPath != "" {
		if err := os.Setenv("SHEETX_CONFIG", o.configPath); err != nil {
			return nil, err
		}
	}
	return common.LoadConfig()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
