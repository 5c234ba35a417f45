// internal/cli/run.go
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sizieks/parsers/internal/runner"
	"github.com/sizieks/parsers/internal/ui"
	"github.com/sizieks/parsers/internal/utils/output"
	"github.com/sizieks/parsers/pkg/models"
)

var (
	runSKU      string
	runPage     int
	runSort     string
	runOnly     bool
	runDate     string
	runCategory string
	runDateFrom string
	runDateTo   string
	runSession  string
	runSnapshot string
	runOutput   string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <handler>",
	Short: "Run one unit of work through a handler pipeline",
	Long: `Runs a single unit of work: validates the unit value against the
handler's input schema, opens the page (live browser tab or a saved
snapshot), extracts the result document, and appends the continuation
units the data implies to the local queue.`,
	Example: `  # First page of verified reviews, newest first
  parsers run reviews --sku=B0EXAMPLE1 --sort=recent

  # Boundary-date continuation across the full series
  parsers run reviews --sku=B0EXAMPLE1 --date=2023-11-02T00:00:00Z

  # Questions and answers for one product
  parsers run qa --sku=smartfon-example-123456

  # Category trends over a four-week window, with stored cookies
  parsers run trends --date-from=2024-03-01 --date-to=2024-03-28 --session=seller

  # Replay a pipeline against a saved page
  parsers run reviews --sku=B0EXAMPLE1 --snapshot=page.html`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runSKU, "sku", "", "Product identifier")
	runCmd.Flags().IntVar(&runPage, "page", 0, "Page number (defaults to 1)")
	runCmd.Flags().StringVar(&runSort, "sort", "", "Sort order (e.g. recent)")
	runCmd.Flags().BoolVar(&runOnly, "only", true, "Restrict to verified purchases")
	runCmd.Flags().StringVar(&runDate, "date", "", "Boundary date for continuation planning (RFC3339)")
	runCmd.Flags().StringVar(&runCategory, "category", "", "Analytics category (trends)")
	runCmd.Flags().StringVar(&runDateFrom, "date-from", "", "Range start, YYYY-MM-DD (trends)")
	runCmd.Flags().StringVar(&runDateTo, "date-to", "", "Range end, YYYY-MM-DD (trends)")
	runCmd.Flags().StringVar(&runSession, "session", "", "Name of a saved cookie set to inject")
	runCmd.Flags().StringVar(&runSnapshot, "snapshot", "", "Run against a saved HTML file instead of a live page")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "File path to save the result document (JSON)")
}

func runRun(cmd *cobra.Command, args []string) error {
	handler := strings.ToLower(args[0])

	// Only explicitly set flags enter the unit value; schema defaults
	// cover the rest.
	value := map[string]any{}
	if runSKU != "" {
		value["sku"] = runSKU
	}
	if cmd.Flags().Changed("page") {
		value["page"] = runPage
	}
	if runSort != "" {
		value["sortBy"] = runSort
	}
	if cmd.Flags().Changed("only") {
		value["only"] = runOnly
	}
	if runDate != "" {
		value["date"] = runDate
	}
	if runCategory != "" {
		value["category"] = runCategory
	}
	if runDateFrom != "" {
		value["dateFrom"] = runDateFrom
	}
	if runDateTo != "" {
		value["dateTo"] = runDateTo
	}

	a := GetApp()
	result, err := a.Runner.Run(cmd.Context(), models.WorkUnit{Handler: handler, Value: value}, runner.Options{
		SnapshotPath: runSnapshot,
		SessionName:  runSession,
	})
	if err != nil {
		return err
	}

	if runOutput != "" {
		if err := output.Save(result, runOutput); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Printf("%s Saved to %s\n", ui.Success("✓"), runOutput)
		return nil
	}

	return output.Print(result)
}
