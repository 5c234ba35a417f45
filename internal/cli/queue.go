// internal/cli/queue.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sizieks/parsers/internal/runner"
	"github.com/sizieks/parsers/internal/ui"
)

var (
	queueListLimit   int
	drainMax         int
	drainSession     string
	drainStopOnError bool
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and drain the local continuation queue",
	Long: `Pipelines append the follow-up units their data implies to a local
queue. "list" shows what is pending; "drain" runs pending units through
their handlers, which may append further continuations in turn.`,
	Example: `  # Show pending continuation units
  parsers queue list

  # Run everything currently pending
  parsers queue drain

  # Run at most ten units, reusing a stored cookie set
  parsers queue drain --max=10 --session=seller`,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending continuation units",
	RunE:  runQueueList,
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Run pending continuation units",
	RunE:  runQueueDrain,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueDrainCmd)

	queueListCmd.Flags().IntVar(&queueListLimit, "limit", 50, "Maximum units to show")
	queueDrainCmd.Flags().IntVar(&drainMax, "max", 0, "Stop after this many units (0 = until empty)")
	queueDrainCmd.Flags().StringVar(&drainSession, "session", "", "Name of a saved cookie set to inject")
	queueDrainCmd.Flags().BoolVar(&drainStopOnError, "stop-on-error", false, "Abort the drain on the first failed unit")
}

func runQueueList(cmd *cobra.Command, args []string) error {
	a := GetApp()

	units, err := a.Queue.List(cmd.Context(), queueListLimit)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	if len(units) == 0 {
		fmt.Println("\nQueue is empty.")
		return nil
	}

	fmt.Printf("\n%s (%d)\n\n", ui.Bold("Pending units"), len(units))
	for _, u := range units {
		value, _ := json.Marshal(u.Unit.Value)
		printKV([][2]string{
			{fmt.Sprintf("#%d", u.ID), u.Unit.Handler},
			{"value", string(value)},
			{"queued", u.Created},
		})
		fmt.Println()
	}
	return nil
}

func runQueueDrain(cmd *cobra.Command, args []string) error {
	a := GetApp()
	ctx := cmd.Context()

	pending, err := a.Queue.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to count queue: %w", err)
	}
	if pending == 0 {
		fmt.Println("\nQueue is empty.")
		return nil
	}
	if drainMax > 0 && drainMax < pending {
		pending = drainMax
	}

	bar := progressbar.NewOptions(pending,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("draining"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	done, failed := 0, 0
	for drainMax == 0 || done+failed < drainMax {
		next, err := a.Queue.Next(ctx)
		if err != nil {
			return fmt.Errorf("failed to read queue: %w", err)
		}
		if next == nil {
			break
		}

		_, runErr := a.Runner.Run(ctx, next.Unit, runner.Options{SessionName: drainSession})
		if runErr != nil {
			failed++
			if drainStopOnError {
				return fmt.Errorf("unit #%d (%s): %w", next.ID, next.Unit.Handler, runErr)
			}
			fmt.Fprintf(os.Stderr, "%s unit #%d (%s): %v\n", ui.Error("✗"), next.ID, next.Unit.Handler, runErr)
		} else {
			done++
		}

		// Failed units are marked done too: the host scheduler owns retry
		// semantics, the local queue only dedups and carries work forward.
		if err := a.Queue.Done(ctx, next.ID); err != nil {
			return fmt.Errorf("failed to mark unit #%d done: %w", next.ID, err)
		}
		bar.Add(1)
	}

	fmt.Printf("\n%s Drained %d unit(s), %d failed.\n", ui.Success("✓"), done, failed)
	return nil
}
