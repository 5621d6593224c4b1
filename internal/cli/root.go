// Package cli provides the aireport command tree.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the aireport command with its subcommands.
func NewRootCommand() *cobra.Command {
	var debug bool
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	rootCmd := &cobra.Command{
		Use:   "aireport",
		Short: "Type AI stock reports into the terminal",
		Long: `aireport fetches the AI report for a stock code from a stockreport server
and reveals it character by character, pausing between blocks the way the
web page does.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debug {
				logger.SetLevel(log.DebugLevel)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(newTypeCommand(logger))

	return rootCmd
}

// slogger routes render logs through the CLI logger.
func slogger(l *log.Logger) *slog.Logger {
	return slog.New(l)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
