package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgallion1/stockreport/internal/fetch"
	"github.com/dgallion1/stockreport/internal/render"
	"github.com/dgallion1/stockreport/internal/schedule"
	"github.com/dgallion1/stockreport/internal/surface"
	"github.com/dgallion1/stockreport/internal/typing"
)

type typeOptions struct {
	server  string
	timeout time.Duration
	delays  typing.Delays
	instant bool
}

func newTypeCommand(logger *log.Logger) *cobra.Command {
	opts := typeOptions{delays: typing.DefaultDelays()}

	cmd := &cobra.Command{
		Use:   "type <stock_code>",
		Short: "Fetch a report and type it out",
		Long: `Fetch the AI report for a stock code and type it into the terminal.

Output is written at once when --instant is set or stdout is not a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runType(ctx, cmd, args[0], opts, logger)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", envOr("STOCKREPORT_URL", "http://localhost:8090"), "stockreport server URL")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "report request timeout")
	cmd.Flags().DurationVar(&opts.delays.Char, "char-delay", opts.delays.Char, "pause after each character")
	cmd.Flags().DurationVar(&opts.delays.InterChunk, "chunk-delay", opts.delays.InterChunk, "pause after each block of text")
	cmd.Flags().DurationVar(&opts.delays.Block, "block-delay", opts.delays.Block, "pause at each block boundary")
	cmd.Flags().BoolVar(&opts.instant, "instant", false, "print without typing delays")

	return cmd
}

func runType(ctx context.Context, cmd *cobra.Command, code string, opts typeOptions, logger *log.Logger) error {
	out := cmd.OutOrStdout()
	instant := opts.instant || !isTerminal(out)

	client := fetch.NewClient(opts.server, opts.timeout)
	defer client.Close()

	term := surface.NewTerminal(out)
	var sched schedule.Scheduler = schedule.Clock{}
	var manual *schedule.Manual
	if instant {
		manual = schedule.NewManual()
		sched = manual
	}

	renderer := render.New(
		render.Host{Surface: term, Title: term},
		client,
		sched,
		slogger(logger.With("stock_code", code)),
		render.Options{Delays: opts.delays},
	)
	defer renderer.Stop()

	logger.Debug("requesting report", "server", opts.server, "stock_code", code, "instant", instant)
	sess := renderer.Render(ctx, code)
	if manual != nil {
		manual.RunUntilIdle()
	}

	select {
	case <-sess.Done():
	case <-ctx.Done():
		renderer.Stop()
	}
	term.Clear()

	if err := term.Err(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	snap := sess.Snapshot()
	logger.Debug("render finished", "outcome", snap.Outcome, "chars", snap.CharsTyped)
	if err := sess.Err(); err != nil && snap.Outcome == render.OutcomeFailed {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
