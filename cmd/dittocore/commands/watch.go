package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/marmos91/dittocore/internal/cli/output"
	"github.com/marmos91/dittocore/pkg/apiclient"
	"github.com/spf13/cobra"
)

var watchOutput string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream lifecycle signals from the server",
	Long: `Subscribe to the server's lifecycle signal stream and print every
broadcast (shutdown, reload) as it happens. The stream ends when the
server starts stopping.

A "lagged" line means signals were dropped because this subscriber fell
behind; the flags printed alongside are always current.

Examples:
  # Follow signals until the server stops
  dittocore watch

  # One JSON object per event
  dittocore watch --output json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "table", "Output format (table|json)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(watchOutput)
	if err != nil {
		return err
	}
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	err = client.WatchSignals(ctx, func(ev apiclient.SignalEvent) error {
		if format == output.FormatJSON {
			return output.PrintJSONLine(os.Stdout, ev)
		}
		printSignalEvent(ev)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("signal stream failed: %w", err)
	}
	if ctx.Err() == context.Canceled {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Stream closed by server")
	return nil
}

func printSignalEvent(ev apiclient.SignalEvent) {
	ts := time.Now().Format(time.TimeOnly)
	switch ev.Event {
	case "hello":
		fmt.Printf("%s  connected  stopping=%t reloading=%t\n", ts, ev.Stopping, ev.Reloading)
	case "lagged":
		fmt.Printf("%s  lagged     missed=%d stopping=%t reloading=%t\n", ts, ev.Missed, ev.Stopping, ev.Reloading)
	default:
		fmt.Printf("%s  %-9s  stopping=%t reloading=%t\n", ts, ev.Signal, ev.Stopping, ev.Reloading)
	}
}
